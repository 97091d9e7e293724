package services

import (
	"github.com/mshogin/flownodes/internal/domain/models"
	"github.com/mshogin/flownodes/internal/infrastructure/config"
)

// paramValidator copies one setting from the node configuration into the
// parameter set, failing when a required setting is absent.
type paramValidator func(cfg config.NodeConfig, params models.ParameterSet) error

func requireIntent(cfg config.NodeConfig, params models.ParameterSet) error {
	if cfg.Intent == "" {
		return &models.MissingParameterError{Field: models.ParamIntent}
	}
	params[models.ParamIntent] = cfg.Intent
	return nil
}

func copyExport(cfg config.NodeConfig, params models.ParameterSet) error {
	params[models.ParamExport] = cfg.ExportContent
	return nil
}

func requireWorkspaceID(cfg config.NodeConfig, params models.ParameterSet) error {
	if cfg.WorkspaceID == "" {
		return &models.MissingParameterError{Field: models.ParamWorkspaceID}
	}
	params[models.ParamWorkspaceID] = cfg.WorkspaceID
	return nil
}

// copyWorkspaceID copies the workspace id when one is configured and never fails.
func copyWorkspaceID(cfg config.NodeConfig, params models.ParameterSet) error {
	if cfg.WorkspaceID != "" {
		params[models.ParamWorkspaceID] = cfg.WorkspaceID
	}
	return nil
}

// copyListOptions copies the configured paging and sorting of workspace listings.
func copyListOptions(cfg config.NodeConfig, params models.ParameterSet) error {
	if cfg.PageLimit > 0 {
		params[models.ParamPageLimit] = cfg.PageLimit
	}
	if cfg.IncludeCount {
		params[models.ParamIncludeCount] = true
	}
	if cfg.Sort != "" {
		params[models.ParamSort] = cfg.Sort
	}
	return nil
}

// paramValidators lists, per operation, the validators run in order.
// getIntent needs everything listIntents needs plus the intent name.
var paramValidators = map[models.Operation][]paramValidator{
	models.OperationListWorkspaces:  {copyListOptions},
	models.OperationGetWorkspace:    {copyWorkspaceID},
	models.OperationGetIntent:       {requireIntent, copyExport, requireWorkspaceID},
	models.OperationListIntents:     {copyExport, requireWorkspaceID},
	models.OperationUpdateWorkspace: {requireWorkspaceID},
	models.OperationDeleteWorkspace: {requireWorkspaceID},
}

// BuildParams merges the node configuration into params for op.
// It performs no I/O; the first missing required setting is reported.
func BuildParams(op models.Operation, cfg config.NodeConfig, params models.ParameterSet) error {
	for _, validate := range paramValidators[op] {
		if err := validate(cfg, params); err != nil {
			return err
		}
	}
	return nil
}
