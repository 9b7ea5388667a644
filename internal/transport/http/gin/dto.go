package httpgin

import "time"

type RegisterRequest struct {
	Secret string `json:"secret" binding:"required,min=8"`
}

type RegisterResponse struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

type LoginRequest struct {
	Address string `json:"address" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type DepositRequest struct {
	Amount uint64 `json:"amount" binding:"required,gt=0"`
}

type InitializeRegistryRequest struct {
	Treasury string `json:"treasury" binding:"required"`
	FeeRate  uint64 `json:"fee_rate" binding:"lte=1000"`
}

type CreateEventRequest struct {
	Name          string `json:"name" binding:"required"`
	Symbol        string `json:"symbol"`
	URI           string `json:"uri"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	InventorySize uint64 `json:"inventory_size"`
	UnitPrice     uint64 `json:"unit_price"`
	SaleType      string `json:"sale_type" binding:"required"`
	ReservePrice  uint64 `json:"reserve_price"`
	StartTime     string `json:"start_time" binding:"required"`
	DurationSec   int64  `json:"duration_sec" binding:"gte=0"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AddContentRequest struct {
	ContentURI string `json:"content_uri" binding:"required"`
}

type TipRequest struct {
	Amount uint64 `json:"amount" binding:"required,gt=0"`
}

type FinalizeResponse struct {
	FeeAmount    uint64 `json:"fee_amount"`
	ArtistAmount uint64 `json:"artist_amount"`
}

type VerifyTicketResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
