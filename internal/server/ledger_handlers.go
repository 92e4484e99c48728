/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */


package server

import (
	"fmt"
	"net/http"

	"p2p-exchange-go/internal/api"
	"p2p-exchange-go/internal/models"
	"p2p-exchange-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	offer, err := s.ledger.CreateOffer(r.Context(), models.UserFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "offer", offer)
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	query, err := parseOfferQuery(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	offers, err := s.ledger.ListOffers(r.Context(), models.UserFromContext(r.Context()), query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, pageSize := api.NormalizePage(query.Page, query.PageSize)
	writeJSON(w, http.StatusOK, envelope{"ok": true, "offers": offers, "page": page, "pageSize": pageSize})
}

func parseOfferQuery(r *http.Request) (api.OfferQuery, error) {
	q := r.URL.Query()
	query := api.OfferQuery{
		Type:     q.Get("type"),
		Status:   q.Get("status"),
		Crypto:   q.Get("crypto"),
		Network:  q.Get("network"),
		Currency: q.Get("currency"),
		Mine:     queryBool(r, "mine"),
	}

	var err error
	if query.MinRate, err = queryDecimal(r, "minRate"); err != nil {
		return query, err
	}
	if query.MaxRate, err = queryDecimal(r, "maxRate"); err != nil {
		return query, err
	}
	if query.Page, query.PageSize, err = pagination(r); err != nil {
		return query, err
	}
	return query, nil
}

func queryDecimal(r *http.Request, name string) (decimal.NullDecimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s must be a decimal number", store.ErrValidation, name)
	}
	return decimal.NewNullDecimal(value), nil
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.ledger.GetOffer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "offer", offer)
}

func (s *Server) handlePatchOffer(w http.ResponseWriter, r *http.Request) {
	var req models.PatchOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	offer, err := s.ledger.PatchOffer(r.Context(), models.UserFromContext(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "offer", offer)
}

func (s *Server) handleCloseOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.ledger.CloseOffer(r.Context(), models.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "offer", offer)
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.OfferId == "" {
		writeError(w, http.StatusBadRequest, "offerId is required")
		return
	}

	request, err := s.ledger.CreateRequest(r.Context(), models.UserFromContext(r.Context()), req.OfferId, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "request", request)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	requests, err := s.ledger.ListRequests(r.Context(), models.UserFromContext(r.Context()), api.RequestQuery{
		OfferId:  r.URL.Query().Get("offerId"),
		Status:   r.URL.Query().Get("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, pageSize = api.NormalizePage(page, pageSize)
	writeJSON(w, http.StatusOK, envelope{"ok": true, "requests": requests, "page": page, "pageSize": pageSize})
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	request, err := s.ledger.GetRequest(r.Context(), models.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "request", request)
}

func (s *Server) handleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	request, err := s.ledger.AcceptRequest(r.Context(), models.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "request", request)
}

func (s *Server) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	request, err := s.ledger.RejectRequest(r.Context(), models.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "request", request)
}

func (s *Server) handleCompleteRequest(w http.ResponseWriter, r *http.Request) {
	request, transaction, err := s.ledger.CompleteRequest(r.Context(), models.UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "request": request, "transaction": transaction})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	transactions, err := s.ledger.ListTransactions(r.Context(), models.UserFromContext(r.Context()), page, pageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "transactions", transactions)
}
