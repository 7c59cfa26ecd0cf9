package memory

import (
	"github.com/sitefix-lab/sitefix/pkg/domain/interfaces"
)

// Memory is an in-memory repository for development and tests
type Memory struct {
	action     *actionRepository
	run        *runRepository
	patch      *patchRepository
	event      *eventRepository
	inspection *inspectionRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		action:     newActionRepository(),
		run:        newRunRepository(),
		patch:      newPatchRepository(),
		event:      newEventRepository(),
		inspection: newInspectionRepository(),
	}
}

func (m *Memory) Action() interfaces.ActionRepository {
	return m.action
}

func (m *Memory) Run() interfaces.RunRepository {
	return m.run
}

func (m *Memory) Patch() interfaces.PatchRepository {
	return m.patch
}

func (m *Memory) Event() interfaces.EventRepository {
	return m.event
}

func (m *Memory) Inspection() interfaces.InspectionRepository {
	return m.inspection
}

func (m *Memory) Close() error {
	return nil
}
