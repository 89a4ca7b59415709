package api

// KeysResponse represents the /api/keys response.
type KeysResponse struct {
	Fingerprint    string `json:"fingerprint"`
	RecoveryPhrase string `json:"recovery_phrase,omitempty"`
}

// RestoreKeysRequest represents the POST /api/keys/restore request.
type RestoreKeysRequest struct {
	RecoveryPhrase string `json:"recovery_phrase"`
}

// CreateCapsuleRequest represents the POST /api/capsules request.
type CreateCapsuleRequest struct {
	Message    string `json:"message"`
	UnlockDate string `json:"unlock_date"`
}

// CapsuleDTO represents one capsule in API responses.
type CapsuleDTO struct {
	Index      int    `json:"index"`
	CreatedAt  string `json:"created_at"`
	UnlockDate string `json:"unlock_date"`
	Status     string `json:"status"`
}

// CapsuleListResponse represents the GET /api/capsules response.
type CapsuleListResponse struct {
	Capsules []CapsuleDTO `json:"capsules"`
	Total    int          `json:"total"`
}

// DecryptResponse represents the POST /api/capsules/{index}/decrypt
// response.
type DecryptResponse struct {
	Plaintext  string `json:"plaintext"`
	CreatedAt  string `json:"created_at"`
	UnlockDate string `json:"unlock_date"`
}

// VerifyResponse represents the POST /api/capsules/{index}/verify
// response.
type VerifyResponse struct {
	Verified   bool   `json:"verified"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
	UnlockDate string `json:"unlock_date"`
}

// HealthResponse represents the GET /healthz response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ImportResponse represents the POST /api/import response.
type ImportResponse struct {
	Capsules int `json:"capsules"`
}

// UnlockEventDTO is the payload carried by the event stream and webhook
// deliveries.
type UnlockEventDTO struct {
	Event      string `json:"event"`
	Index      int    `json:"index"`
	CreatedAt  string `json:"created_at"`
	UnlockDate string `json:"unlock_date"`
	NotifiedAt string `json:"notified_at,omitempty"`
}
