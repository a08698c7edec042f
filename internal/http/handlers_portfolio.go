package http

import (
	"encoding/json"
	"net/http"

	"finarth/internal/core"
	"finarth/internal/log"
)

type holdingRequest struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Amount   flexDecimal `json:"amount"`
	Date     string      `json:"date"`
	Symbol   string      `json:"symbol"`
}

// toHolding parses the request; an empty date is left zero for the service to default.
func (req holdingRequest) toHolding(userID int64) (core.Holding, error) {
	h := core.Holding{
		UserID:   userID,
		Name:     sanitizeInput(req.Name),
		Category: sanitizeInput(req.Category),
		Amount:   req.Amount.Decimal,
		Symbol:   sanitizeInput(req.Symbol),
	}
	if d := sanitizeInput(req.Date); d != "" {
		date, err := core.ParseDate(d)
		if err != nil {
			return core.Holding{}, err
		}
		h.Date = date
	}
	return h, nil
}

// scopedUser parses and authorizes the {userId} path segment.
func (s *Server) scopedUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := pathID(r, "userId")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return 0, false
	}
	return userID, s.authorize(w, r, userID)
}

func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.scopedUser(w, r)
	if !ok {
		return
	}

	holdings, err := s.deps.Portfolio.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}

	out := make([]holdingResponse, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, toHoldingResponse(h))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.scopedUser(w, r)
	if !ok {
		return
	}

	var req holdingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	h, err := req.toHolding(userID)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	created, err := s.deps.Portfolio.Create(r.Context(), h)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toHoldingResponse(created)).Write(w)
}

func (s *Server) handleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.scopedUser(w, r)
	if !ok {
		return
	}
	holdingID, err := pathID(r, "holdingId")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var req holdingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	h, err := req.toHolding(userID)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	h.ID = holdingID

	updated, err := s.deps.Portfolio.Update(r.Context(), h)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(toHoldingResponse(updated)).Write(w)
}

func (s *Server) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.scopedUser(w, r)
	if !ok {
		return
	}
	holdingID, err := pathID(r, "holdingId")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if err := s.deps.Portfolio.Delete(r.Context(), userID, holdingID); err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(map[string]bool{"deleted": true}).Write(w)
}

type categoryResponse struct {
	Category string      `json:"category"`
	Invested json.Number `json:"invested"`
	Weight   float64     `json:"weight"`
	Holdings int         `json:"holdings"`
}

type positionResponse struct {
	HoldingID int64          `json:"holdingId"`
	Name      string         `json:"name"`
	Symbol    string         `json:"symbol"`
	Invested  json.Number    `json:"invested"`
	Quote     *quoteResponse `json:"quote"`
}

type summaryResponse struct {
	UserID        int64              `json:"userId"`
	TotalInvested json.Number        `json:"totalInvested"`
	Categories    []categoryResponse `json:"categories"`
	Positions     []positionResponse `json:"positions"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.scopedUser(w, r)
	if !ok {
		return
	}

	sum, err := s.deps.Portfolio.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}

	out := summaryResponse{
		UserID:        sum.UserID,
		TotalInvested: number(sum.TotalInvested),
		Categories:    make([]categoryResponse, 0, len(sum.Categories)),
		Positions:     make([]positionResponse, 0, len(sum.Positions)),
	}
	for _, c := range sum.Categories {
		out.Categories = append(out.Categories, categoryResponse{
			Category: c.Category,
			Invested: number(c.Invested),
			Weight:   c.Weight,
			Holdings: c.Holdings,
		})
	}
	for _, p := range sum.Positions {
		pos := positionResponse{
			HoldingID: p.HoldingID,
			Name:      p.Name,
			Symbol:    p.Symbol,
			Invested:  number(p.Invested),
		}
		if p.Quote != nil {
			q := toQuoteResponse(*p.Quote)
			pos.Quote = &q
		}
		out.Positions = append(out.Positions, pos)
	}
	NewJSONResponse().Body(out).Write(w)
}
