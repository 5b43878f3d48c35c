package http

import (
	"net/http"
	"strconv"

	applog "budgetpal/internal/log"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	all, err := s.payments.List(r.Context())
	if err != nil {
		writeServiceError(w, r, applog.OpList, err)
		return
	}
	out := make([]paymentResponse, 0, len(all))
	for _, sp := range all {
		out = append(out, newPaymentResponse(sp))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	req, err := decodePaymentRequest(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	in, err := req.newRecord()
	if err != nil {
		writeServiceError(w, r, applog.OpCreate, err)
		return
	}

	sp, err := s.payments.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	w.Header().Set("Location", "/api/payments/"+strconv.FormatInt(sp.Record.ID, 10))
	writeJSON(w, r, http.StatusCreated, newPaymentResponse(sp))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sp, err := s.payments.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPaymentResponse(sp))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req, err := decodePaymentRequest(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	current, err := s.payments.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	if err := req.checkImmutable(current.Record); err != nil {
		writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	upd, err := req.update(current.Record.Frequency, current.Record.Category)
	if err != nil {
		writeServiceError(w, r, applog.OpUpdate, err)
		return
	}

	sp, err := s.payments.Update(r.Context(), id, upd)
	if err != nil {
		writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newPaymentResponse(sp))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.payments.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOutlook(w http.ResponseWriter, r *http.Request) {
	o, err := s.outlook.MonthOutlook(r.Context())
	if err != nil {
		writeServiceError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newOutlookResponse(o))
}
