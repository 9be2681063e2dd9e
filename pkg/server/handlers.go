package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/checkout"
	"github.com/zdunecki/skymesh/pkg/flows"
	"github.com/zdunecki/skymesh/pkg/recommend"
	"github.com/zdunecki/skymesh/pkg/store"
	"github.com/zdunecki/skymesh/pkg/wizard"
)

var (
	errNotStarted = errors.New("flow not started")
	errNotFinal   = errors.New("the last step is not reached or not complete")
)

type flowState struct {
	Flow      string           `json:"flow"`
	View      wizard.View      `json:"view"`
	Answers   wizard.Answers   `json:"answers"`
	Review    []wizard.RowView `json:"review,omitempty"`
	CanFinish bool             `json:"canFinish"`
	// AutoAdvanceMs is set while an auto-advance is pending; clients
	// re-fetch the state after it.
	AutoAdvanceMs int64 `json:"autoAdvanceMs,omitempty"`
}

func secretsOf(flow string) []string {
	def, err := flows.Definition(flow)
	if err != nil {
		return nil
	}
	return flows.SecretKeys(def)
}

func stateOf(flow string, d *wizard.Driver) flowState {
	st := flowState{
		Flow:      flow,
		View:      d.View(),
		Answers:   flows.Redact(d.Answers(), secretsOf(flow)),
		CanFinish: d.CanFinish(),
	}
	if st.View.Kind == wizard.KindReview {
		st.Review = d.ReviewRows()
	}
	if d.Pending() {
		st.AutoAdvanceMs = d.Delay().Milliseconds()
	}
	return st
}

type flowHandler func(w http.ResponseWriter, r *http.Request, sess *session, flow string, d *wizard.Driver)

// withDriver resolves the session's driver for the {flow} URL parameter.
func (s *Server) withDriver(h flowHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flow := chi.URLParam(r, "flow")
		if !slices.Contains(flows.Names(), flow) {
			writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", flows.ErrUnknownFlow, flow))
			return
		}
		sess := s.sessions.get(w, r)
		d, ok := sess.driver(flow)
		if !ok {
			writeError(w, http.StatusConflict, fmt.Errorf("%w: %s", errNotStarted, flow))
			return
		}
		h(w, r, sess, flow, d)
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	flow := chi.URLParam(r, "flow")
	var req struct {
		Plan string `json:"plan"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sess := s.sessions.get(w, r)

	var seed wizard.Answers
	switch flow {
	case flows.Quiz:
	case flows.Checkout:
		plan, ok := recommend.PlanByID(req.Plan)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", checkout.ErrUnknownPlan, req.Plan))
			return
		}
		seed = wizard.Answers{"plan": plan.Name}
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", flows.ErrUnknownFlow, flow))
		return
	}

	def, err := flows.Definition(flow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	e, err := flows.Compile(def, s.opts.Now(), wizard.WithAnswers(seed))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	delay := flows.AutoAdvanceDelay(def)
	if s.opts.AutoAdvanceDelay > 0 {
		delay = s.opts.AutoAdvanceDelay
	}
	d := wizard.NewDriver(e, wizard.WithAutoAdvanceDelay(delay), wizard.WithName(flow+":"+sess.id))
	sess.replace(flow, d)
	zap.L().Info("flow started", zap.String("flow", flow), zap.String("session", sess.id))
	writeJSON(w, http.StatusCreated, stateOf(flow, d))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	d.Advance()
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	d.Retreat()
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

func (s *Server) handleGoTo(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	var req struct {
		Index int `json:"index"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	d.GoTo(req.Index)
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

// fieldRequest carries one answer. Secret fields may arrive encrypted with
// the key from /api/crypto/public-key instead of in Value.
type fieldRequest struct {
	Key       string `json:"key"`
	Value     any    `json:"value"`
	Encrypted string `json:"encrypted" secure:"rsa_oaep_b64" secure_key:"KeyID"`
	KeyID     string `json:"keyId"`
}

func (s *Server) readField(w http.ResponseWriter, r *http.Request) (fieldRequest, bool) {
	var req fieldRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, false
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, errors.New("key is required"))
		return req, false
	}
	if req.Encrypted != "" {
		if err := s.keys.decryptFields(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return req, false
		}
		req.Value = req.Encrypted
	}
	return req, true
}

func (s *Server) handleField(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	req, ok := s.readField(w, r)
	if !ok {
		return
	}
	d.Set(req.Key, req.Value)
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	var req struct {
		Key  string `json:"key"`
		Item string `json:"item"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	d.Toggle(req.Key, req.Item)
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	var req struct {
		Key string `json:"key"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	d.Edit(req.Key)
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

type draftState struct {
	Open   bool           `json:"open"`
	Values wizard.Answers `json:"values,omitempty"`
}

func (s *Server) handleDraftOpen(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	var req struct {
		Key string `json:"key"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	values, ok := d.OpenDraft(req.Key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no step owns %q", req.Key))
		return
	}
	writeJSON(w, http.StatusOK, draftState{Open: true, Values: flows.Redact(values, secretsOf(flow))})
}

func (s *Server) handleDraftField(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	req, ok := s.readField(w, r)
	if !ok {
		return
	}
	values, open := d.SetDraft(req.Key, req.Value)
	if !open {
		writeError(w, http.StatusConflict, errors.New("no draft open"))
		return
	}
	writeJSON(w, http.StatusOK, draftState{Open: true, Values: flows.Redact(values, secretsOf(flow))})
}

func (s *Server) handleDraftCommit(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	if _, ok := d.CommitDraft(); !ok {
		writeError(w, http.StatusConflict, errors.New("no draft open"))
		return
	}
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

func (s *Server) handleDraftCancel(w http.ResponseWriter, r *http.Request, _ *session, flow string, d *wizard.Driver) {
	d.CancelDraft()
	writeJSON(w, http.StatusOK, stateOf(flow, d))
}

// checkFinish answers 409 with the flow state when the flow cannot finish.
// An invalid step anywhere in the visible sequence becomes the active one.
func (s *Server) checkFinish(w http.ResponseWriter, flow string, d *wizard.Driver) bool {
	if _, ok := d.CheckFinish(); ok {
		return true
	}
	writeJSON(w, http.StatusConflict, map[string]any{
		"error": errNotFinal.Error(),
		"state": stateOf(flow, d),
	})
	return false
}

// handleQuizFinish writes the snapshot the recommendation page reads.
func (s *Server) handleQuizFinish(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	d, ok := sess.driver(flows.Quiz)
	if !ok {
		writeError(w, http.StatusConflict, fmt.Errorf("%w: %s", errNotStarted, flows.Quiz))
		return
	}
	if !s.checkFinish(w, flows.Quiz, d) {
		return
	}
	a := d.Answers()
	snap := recommend.FromAnswers(a.String("household"), a.String("devices"), a.List("usage"))
	if err := recommend.Save(r.Context(), s.store, sess.snapshotKey(), snap); err != nil {
		zap.L().Error("save quiz snapshot", zap.String("session", sess.id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"next": "/analyzing", "snapshot": snap})
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	snap, err := recommend.Restore(r.Context(), s.store, sess.snapshotKey())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		zap.L().Warn("quiz snapshot unusable, using default", zap.String("session", sess.id), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendation": recommend.Derive(snap),
		"fromDefault":    err != nil,
	})
}

// handlePlans tags the plan passed as ?match=, which the recommendation
// page links with; the snapshot is not read here.
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	var match string
	if p, ok := recommend.PlanByID(r.URL.Query().Get("match")); ok {
		match = p.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plans": recommend.Catalogue(),
		"match": match,
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	d, ok := sess.driver(flows.Checkout)
	if !ok {
		writeError(w, http.StatusConflict, fmt.Errorf("%w: %s", errNotStarted, flows.Checkout))
		return
	}
	if !s.checkFinish(w, flows.Checkout, d) {
		return
	}
	order, err := checkout.Confirm(r.Context(), s.store, d.Answers(), s.opts.Now())
	switch {
	case errors.Is(err, checkout.ErrIncomplete), errors.Is(err, checkout.ErrUnknownPlan):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		zap.L().Error("confirm order", zap.String("session", sess.id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sess.addOrder(order.Number)
	zap.L().Info("order placed", zap.String("order", order.Number), zap.String("plan", order.Plan.ID))
	writeJSON(w, http.StatusCreated, order)
}

// handleOrder only serves orders placed in the caller's session.
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if !s.sessions.get(w, r).owns(number) {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
		return
	}
	order, err := checkout.Load(r.Context(), s.store, number)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
