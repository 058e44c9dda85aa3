package storage

import "github.com/ignatij/letterflow/pkg/models"

// Store defines the task persistence operations for Letterflow. Tasks are
// stored by value; SaveTask upserts on the task ID.
type Store interface {
	SaveTask(t models.Task) error
	GetTask(id string) (models.Task, error)
	ListTasks() ([]models.Task, error)
	DeleteTask(id string) error
	Close() error
}
