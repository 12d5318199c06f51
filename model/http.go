package model

type GenerateRequestBody struct {
	Length      int  `json:"length"`
	Inspiration bool `json:"inspiration"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}
