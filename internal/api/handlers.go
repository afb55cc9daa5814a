package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/schedule"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/wizard"
)

const errNoCredential = "no private key stored for this user, set one first"

type keyRequest struct {
	PrivateKey string `json:"private_key" valid:"required~private_key is required"`
}

type tradeRequest struct {
	Action           string      `json:"action" valid:"in(buy|sell)~action must be buy or sell,optional"`
	Mint             string      `json:"mint" valid:"required~mint is required"`
	Amount           json.Number `json:"amount"`
	DenominatedInSol *bool       `json:"denominated_in_sol"`
	Slippage         *int        `json:"slippage"`
	PriorityFee      json.Number `json:"priority_fee"`
	Pool             string      `json:"pool"`
	Graduated        *bool       `json:"graduated"`
}

func (r tradeRequest) params() trade.Params {
	p := trade.Params{
		Action:           r.Action,
		Mint:             r.Mint,
		Amount:           r.Amount.String(),
		DenominatedInSol: r.DenominatedInSol,
		Slippage:         r.Slippage,
		PriorityFee:      r.PriorityFee.String(),
		Pool:             r.Pool,
	}
	if p.Action == "" {
		p.Action = string(trade.ActionBuy)
	}
	// токен еще на bonding curve
	if p.Pool == "" && r.Graduated != nil && !*r.Graduated {
		p.Pool = string(trade.PoolPump)
	}
	return p
}

type scheduleResponse struct {
	UserID     string    `json:"user_id"`
	Mint       string    `json:"mint"`
	HandleID   string    `json:"handle_id"`
	State      string    `json:"state,omitempty"`
	Replaced   bool      `json:"replaced,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	Interval   string    `json:"interval,omitempty"`
	Iterations int       `json:"iterations"`
	LastError  string    `json:"last_error,omitempty"`
}

type wizardResponse struct {
	State  string          `json:"state"`
	Prompt string          `json:"prompt,omitempty"`
	Mint   string          `json:"mint,omitempty"`
	Result *resultResponse `json:"result,omitempty"`
}

func newWizardResponse(reply wizard.Reply) wizardResponse {
	resp := wizardResponse{State: reply.State.String(), Prompt: reply.Prompt}
	if reply.Report != nil {
		res := newResultResponse(reply.Report.Result)
		resp.Mint = reply.Report.Mint
		resp.Result = &res
	}
	return resp
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if _, err := govalidator.ValidateStruct(v); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) setKey(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req keyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	wlt, err := s.deps.Store.Set(userID, strings.TrimSpace(req.PrivateKey))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": wlt.PublicKey.String()})
}

func (s *Server) removeKey(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Store.Remove(chi.URLParam(r, "userID")) {
		writeError(w, http.StatusNotFound, "no private key stored")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createWallet(w http.ResponseWriter, r *http.Request) {
	gen, err := s.deps.Wallets.CreateWallet(r.Context())
	if err != nil {
		s.logger.Warn("Wallet generation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"wallet_public_key": gen.WalletPublicKey,
		"private_key":       gen.PrivateKey,
		"api_key":           gen.APIKey,
	})
}

func (s *Server) submitTrade(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req tradeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	intent, err := s.deps.Builder.Build(req.params())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	wlt, ok := s.deps.Store.Get(userID)
	if !ok {
		writeError(w, http.StatusPreconditionFailed, errNoCredential)
		return
	}

	res := s.deps.Trader.SubmitSingleTrade(r.Context(), userID, wlt, intent)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, newResultResponse(res))
}

func (s *Server) startSchedule(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req tradeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Action == string(trade.ActionSell) {
		writeError(w, http.StatusBadRequest, "recurring purchases only buy")
		return
	}
	intent, err := s.deps.Builder.Build(req.params())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := s.deps.Store.Get(userID); !ok {
		writeError(w, http.StatusPreconditionFailed, errNoCredential)
		return
	}

	ack, err := s.deps.Scheduler.Start(schedule.Key{UserID: userID, Mint: intent.Mint}, intent)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, scheduleResponse{
		UserID:    ack.Key.UserID,
		Mint:      ack.Key.Mint,
		HandleID:  ack.HandleID,
		State:     schedule.StateRunning.String(),
		Replaced:  ack.Replaced,
		StartedAt: ack.StartedAt,
		Interval:  ack.Interval.String(),
	})
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	infos := s.deps.Scheduler.List(chi.URLParam(r, "userID"))
	out := make([]scheduleResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, scheduleResponse{
			UserID:     info.Key.UserID,
			Mint:       info.Key.Mint,
			HandleID:   info.HandleID,
			State:      info.State.String(),
			StartedAt:  info.StartedAt,
			Iterations: info.Iterations,
			LastError:  info.LastError,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) stopSchedule(w http.ResponseWriter, r *http.Request) {
	key := schedule.Key{UserID: chi.URLParam(r, "userID"), Mint: chi.URLParam(r, "mint")}
	if !s.deps.Scheduler.Stop(key) {
		writeError(w, http.StatusNotFound, "no recurring purchase for this token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) beginWizard(w http.ResponseWriter, r *http.Request) {
	reply, err := s.deps.Wizard.Begin(chi.URLParam(r, "userID"))
	if err != nil {
		s.writeWizardError(w, reply, err)
		return
	}
	writeJSON(w, http.StatusOK, newWizardResponse(reply))
}

func (s *Server) wizardInput(w http.ResponseWriter, r *http.Request) {
	in, err := s.readWizardInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reply, err := s.deps.Wizard.Handle(r.Context(), chi.URLParam(r, "userID"), in)
	if err != nil {
		s.writeWizardError(w, reply, err)
		return
	}
	writeJSON(w, http.StatusOK, newWizardResponse(reply))
}

func (s *Server) cancelWizard(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Wizard.Cancel(chi.URLParam(r, "userID")) {
		writeError(w, http.StatusNotFound, "no token creation to cancel")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readWizardInput(w http.ResponseWriter, r *http.Request) (wizard.Input, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return wizard.Input{}, fmt.Errorf("invalid request body: %w", err)
		}
		return wizard.Input{Text: body.Text}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes+1<<20)
	if err := r.ParseMultipartForm(s.cfg.MaxImageBytes); err != nil {
		return wizard.Input{}, fmt.Errorf("invalid multipart body: %w", err)
	}
	in := wizard.Input{Text: r.FormValue("text")}

	file, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return wizard.Input{}, fmt.Errorf("invalid image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxImageBytes+1))
	if err != nil {
		return wizard.Input{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxImageBytes {
		return wizard.Input{}, errors.New("image is too large")
	}
	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	in.Image = &bundle.Image{Name: hdr.Filename, ContentType: contentType, Data: data}
	return in, nil
}

func (s *Server) writeWizardError(w http.ResponseWriter, reply wizard.Reply, err error) {
	var verr *trade.ValidationError
	switch {
	case errors.Is(err, wizard.ErrNoSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, wizard.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Prompt: reply.Prompt})
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
