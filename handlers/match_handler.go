package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/movie-tournament/services"
)

type MatchHandler struct {
	queryService services.QueryService
	voteService  services.VoteService
}

func NewMatchHandler(qs services.QueryService, vs services.VoteService) *MatchHandler {
	return &MatchHandler{queryService: qs, voteService: vs}
}

// GetCurrentMatch godoc
// @Summary      Current match
// @Description  The open match with live tallies and the previous round's result.
// @Tags         matches
// @Produce      json
// @Success      200  {object}  services.CurrentMatchView
// @Failure      404  {object}  map[string]string
// @Router       /matches/current [get]
func (h *MatchHandler) GetCurrentMatch(w http.ResponseWriter, r *http.Request) {
	view, err := h.queryService.CurrentMatch(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetCurrentContenders godoc
// @Summary  Contenders of the open match
// @Tags     matches
// @Produce  json
// @Success  200  {object}  map[string]interface{}
// @Failure  404  {object}  map[string]string
// @Router   /matches/current/contenders [get]
func (h *MatchHandler) GetCurrentContenders(w http.ResponseWriter, r *http.Request) {
	contenders, err := h.queryService.CurrentContenders(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"contenders": contenders}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetWinnerHistory godoc
// @Summary  Winner history, newest round first
// @Tags     matches
// @Produce  json
// @Param    limit   query  int  false  "page size (max 100)"
// @Param    offset  query  int  false  "rows to skip"
// @Success  200  {object}  map[string]interface{}
// @Router   /matches/history [get]
func (h *MatchHandler) GetWinnerHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	history, err := h.queryService.WinnerHistory(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMatchTally godoc
// @Summary  Tally of a match
// @Tags     matches
// @Produce  json
// @Param    matchID  path  string  true  "match ID or \"current\""
// @Success  200  {object}  map[string]interface{}
// @Failure  404  {object}  map[string]string
// @Router   /matches/{matchID}/tally [get]
func (h *MatchHandler) GetMatchTally(w http.ResponseWriter, r *http.Request) {
	var matchID int64
	if chi.URLParam(r, "matchID") == currentMatchParam {
		view, err := h.queryService.CurrentMatch(r.Context())
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		matchID = view.Match.ID
	} else {
		id, err := getIDFromURL(r, "matchID")
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		matchID = id
	}

	tally, err := h.voteService.TallyOf(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match_id": matchID, "tally": tally}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
