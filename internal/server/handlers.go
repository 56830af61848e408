package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/KaramelBytes/adreport-cli/internal/ai"
	"github.com/KaramelBytes/adreport-cli/internal/kpi"
	"github.com/KaramelBytes/adreport-cli/internal/report"
	"github.com/KaramelBytes/adreport-cli/internal/workbook"
)

// Error messages returned to clients.
const (
	MsgMissingToken     = "Missing ID Token"
	MsgInvalidToken     = "Invalid Token"
	MsgKeyNotConfigured = "API Key not configured on server."
)

type errorBody struct {
	Error string `json:"error"`
}

// KeyRequest is the body of the key endpoint.
type KeyRequest struct {
	IDToken string `json:"idToken"`
}

// KeyResponse is a successful key issuance.
type KeyResponse struct {
	APIKey string `json:"apiKey"`
}

// ExtractResponse is returned by /api/extract. Error is set on gate failure.
type ExtractResponse struct {
	Error   string         `json:"error,omitempty"`
	Missing []kpi.Field    `json:"missing,omitempty"`
	Sheet   string         `json:"sheet"`
	Record  kpi.Record     `json:"kpi"`
	Log     []kpi.LogEntry `json:"log"`
}

// SummaryRequest is the body of /api/summary.
type SummaryRequest struct {
	Record  kpi.Record     `json:"kpi"`
	Context report.Context `json:"context"`
}

// SummaryResponse carries the generated text.
type SummaryResponse struct {
	Summary string   `json:"summary"`
	Model   string   `json:"model,omitempty"`
	Usage   ai.Usage `json:"usage"`
}

type authFailure struct {
	status int
	msg    string
}

func (f *authFailure) Error() string { return f.msg }

// authorize runs the token checks shared by the key endpoint and the
// summary route.
func (s *Server) authorize(c *fiber.Ctx, idToken string) error {
	if idToken == "" {
		return &authFailure{fiber.StatusBadRequest, MsgMissingToken}
	}
	claims, err := s.opts.Verifier.Verify(c.UserContext(), idToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return &authFailure{fiber.StatusUnauthorized, MsgInvalidToken}
		}
		s.log.Warn("token verification failed", zap.Error(err))
		return &authFailure{fiber.StatusInternalServerError, err.Error()}
	}
	if s.opts.ClientID != "" && claims.Audience != s.opts.ClientID {
		return &authFailure{fiber.StatusUnauthorized, MsgInvalidToken}
	}
	if claims.HostedDomain != s.opts.AllowedDomain {
		s.log.Info("rejected foreign domain", zap.String("hd", claims.HostedDomain), zap.String("email", claims.Email))
		return &authFailure{fiber.StatusForbidden, fmt.Sprintf("Access restricted to %s accounts.", s.opts.AllowedDomain)}
	}
	return nil
}

func writeAuthFailure(c *fiber.Ctx, err error) error {
	var af *authFailure
	if errors.As(err, &af) {
		return c.Status(af.status).JSON(errorBody{Error: af.msg})
	}
	return err
}

func (s *Server) handleKey(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).SendString("Method Not Allowed")
	}
	var body KeyRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: err.Error()})
	}
	if err := s.authorize(c, body.IDToken); err != nil {
		return writeAuthFailure(c, err)
	}
	if s.opts.APIKey == "" {
		s.log.Error("GEMINI_API_KEY is not configured")
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: MsgKeyNotConfigured})
	}
	return c.JSON(KeyResponse{APIKey: s.opts.APIKey})
}

func handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "No file uploaded. Use form field 'file'."})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: err.Error()})
	}
	defer f.Close()

	wb, err := workbook.Load(f)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: err.Error()})
	}
	res := s.opts.Extractor.Extract(wb)
	out := ExtractResponse{Sheet: res.Sheet, Record: res.Record, Log: res.Log}
	if out.Log == nil {
		out.Log = []kpi.LogEntry{}
	}
	if err := s.opts.Gate.Check(res.Record); err != nil {
		out.Error = kpi.StaleWorkbookMessage
		var qe *kpi.QualityError
		if errors.As(err, &qe) {
			out.Missing = qe.Missing
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
	}
	return c.JSON(out)
}

func bearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (s *Server) handleSummary(c *fiber.Ctx) error {
	if err := s.authorize(c, bearerToken(c)); err != nil {
		return writeAuthFailure(c, err)
	}
	if s.opts.Summarizer == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: MsgKeyNotConfigured})
	}
	var req SummaryRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "invalid JSON body: " + err.Error()})
	}
	sum, err := s.opts.Summarizer.Summarize(c.UserContext(), req.Record, req.Context.WithDefaults())
	if err != nil {
		if errors.Is(err, kpi.ErrStaleWorkbook) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(errorBody{Error: kpi.StaleWorkbookMessage})
		}
		s.log.Error("summary generation failed", zap.Error(err))
		msg := err.Error()
		if hint := ai.Hint(err); hint != "" {
			msg += " (" + hint + ")"
		}
		return c.Status(fiber.StatusBadGateway).JSON(errorBody{Error: msg})
	}
	return c.JSON(SummaryResponse{Summary: sum.Text, Model: sum.Model, Usage: sum.Usage})
}
