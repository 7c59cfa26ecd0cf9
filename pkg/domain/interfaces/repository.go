package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Action() ActionRepository
	Run() RunRepository
	Patch() PatchRepository
	Event() EventRepository
	Inspection() InspectionRepository

	Close() error
}
