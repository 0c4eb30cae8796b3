package coretest

import "github.com/synthsel/ss-sync/internal/syncagent/core"

// Project is a static core.Project.
type Project struct {
	IsOpen      bool
	DisplayName string
}

var _ core.Project = Project{}

func (p Project) Open() bool   { return p.IsOpen }
func (p Project) Name() string { return p.DisplayName }
