package dto

import "github.com/baechuer/curation-service/internal/jobs"

type ItemsResp[T any] struct {
	Items []T `json:"items"`
}

type AffinityResp struct {
	UserID  string             `json:"user_id"`
	Weights map[string]float64 `json:"weights"`
}

type CronResp struct {
	Job     jobs.Job      `json:"job"`
	Reports []jobs.Report `json:"reports"`
}
