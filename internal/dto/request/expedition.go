package request

type CreateExpeditionRequest struct {
	TrailID   string `json:"trail_id" validate:"required,uuid4"`
	Title     string `json:"title" validate:"required,min=5,max=200"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Capacity  int    `json:"capacity" validate:"required,min=1,max=100"`
	Price     int64  `json:"price" validate:"required,min=1000"`
}
