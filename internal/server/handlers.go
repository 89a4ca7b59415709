package server

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	chronoseal "github.com/chronoseal/capsule-go"
)

// keysResponse reports the vault's key pair without secret material.
type keysResponse struct {
	Fingerprint string `json:"fingerprint"`
	// RecoveryPhrase is set only in the response to key generation. It is
	// shown exactly once and never stored server-side.
	RecoveryPhrase string `json:"recovery_phrase,omitempty"`
}

// restoreKeysRequest is the JSON body for POST /api/keys/restore.
type restoreKeysRequest struct {
	RecoveryPhrase string `json:"recovery_phrase"`
}

// createCapsuleRequest is the JSON body for POST /api/capsules.
type createCapsuleRequest struct {
	Message    string `json:"message"`
	UnlockDate string `json:"unlock_date"`
}

// capsuleResponse is the listing view of one capsule.
type capsuleResponse struct {
	Index      int    `json:"index"`
	CreatedAt  string `json:"created_at"`
	UnlockDate string `json:"unlock_date"`
	Status     string `json:"status"`
}

// capsuleListResponse wraps GET /api/capsules.
type capsuleListResponse struct {
	Capsules []capsuleResponse `json:"capsules"`
	Total    int               `json:"total"`
}

// decryptResponse carries a recovered plaintext.
type decryptResponse struct {
	Plaintext  string `json:"plaintext"`
	CreatedAt  string `json:"created_at"`
	UnlockDate string `json:"unlock_date"`
}

// verifyResponse reports authenticity of a capsule.
type verifyResponse struct {
	Verified   bool   `json:"verified"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
	UnlockDate string `json:"unlock_date"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateKeys(c echo.Context) error {
	if s.vault.HasKeys() {
		// Silent rotation over HTTP would strand every sealed capsule.
		return respondError(c, chronoseal.ErrVaultNotEmpty)
	}

	info, err := s.vault.GenerateKeys()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, keysResponse{
		Fingerprint:    info.Fingerprint,
		RecoveryPhrase: info.RecoveryPhrase,
	})
}

func (s *Server) handleRestoreKeys(c echo.Context) error {
	var req restoreKeysRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, &chronoseal.ValidationError{Errors: []string{"invalid request body"}})
	}
	if req.RecoveryPhrase == "" {
		return respondError(c, &chronoseal.ValidationError{Errors: []string{"recovery_phrase is required"}})
	}

	info, err := s.vault.RestoreKeys(req.RecoveryPhrase)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, keysResponse{Fingerprint: info.Fingerprint})
}

func (s *Server) handleGetKeys(c echo.Context) error {
	info, err := s.vault.Keys()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, keysResponse{Fingerprint: info.Fingerprint})
}

func (s *Server) handleCreateCapsule(c echo.Context) error {
	var req createCapsuleRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, &chronoseal.ValidationError{Errors: []string{"invalid request body"}})
	}

	summary, err := s.vault.CreateCapsule(req.Message, req.UnlockDate)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toCapsuleResponse(summary))
}

func (s *Server) handleListCapsules(c echo.Context) error {
	summaries, err := s.vault.ListCapsules()
	if err != nil {
		return respondError(c, err)
	}

	resp := capsuleListResponse{
		Capsules: make([]capsuleResponse, 0, len(summaries)),
		Total:    len(summaries),
	}
	for i := range summaries {
		resp.Capsules = append(resp.Capsules, toCapsuleResponse(&summaries[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetCapsule(c echo.Context) error {
	index, err := capsuleIndex(c)
	if err != nil {
		return respondError(c, err)
	}

	summary, err := s.vault.Capsule(index)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toCapsuleResponse(summary))
}

func (s *Server) handleDecryptCapsule(c echo.Context) error {
	index, err := capsuleIndex(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.vault.DecryptCapsule(index)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, decryptResponse{
		Plaintext:  result.Plaintext,
		CreatedAt:  result.CreatedAt,
		UnlockDate: result.UnlockDate,
	})
}

func (s *Server) handleVerifyCapsule(c echo.Context) error {
	index, err := capsuleIndex(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := s.vault.VerifyCapsule(index)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, verifyResponse{
		Verified:   result.Verified,
		Reason:     result.Reason,
		CreatedAt:  result.CreatedAt,
		UnlockDate: result.UnlockDate,
	})
}

func (s *Server) handleExport(c echo.Context) error {
	exported, err := s.vault.Export()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, exported)
}

func (s *Server) handleImport(c echo.Context) error {
	var data chronoseal.ExportedVault
	if err := c.Bind(&data); err != nil {
		return respondError(c, &chronoseal.ValidationError{Errors: []string{"invalid request body"}})
	}

	if err := s.vault.Import(&data); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"capsules": len(data.Capsules)})
}

// capsuleIndex parses the :index path parameter.
func capsuleIndex(c echo.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, &chronoseal.ValidationError{Errors: []string{"index must be an integer"}}
	}
	return index, nil
}

func toCapsuleResponse(s *chronoseal.CapsuleSummary) capsuleResponse {
	return capsuleResponse{
		Index:      s.Index,
		CreatedAt:  s.CreatedAt,
		UnlockDate: s.UnlockDate,
		Status:     string(s.Status),
	}
}
