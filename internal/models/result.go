package models

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
}

type UploadResult struct {
	CVID      string           `json:"cv_id"`
	ReportID  string           `json:"report_id"`
	Documents []UploadResponse `json:"documents"`
}

type EvaluateRequest struct {
	JobTitle string `json:"job_title"`
	CVID     string `json:"cv_id"`
	ReportID string `json:"report_id"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
