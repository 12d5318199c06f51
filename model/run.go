package model

import "time"

// TrainingRun summarises one call to the training loop.
type TrainingRun struct {
	ID          string    `json:"id" dynamodbav:"PK"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Epochs      int       `json:"epochs"`
	TotalSteps  int       `json:"total_steps"`
	BestF1      float64   `json:"best_f1"`
	LastLoss    float64   `json:"last_loss"`
	LastF1      float64   `json:"last_f1"`
	Checkpoints int       `json:"checkpoints"`
	EarlyStops  int       `json:"early_stops"`
}
