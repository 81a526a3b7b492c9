package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/movie-tournament/middleware"
	"github.com/Dosada05/movie-tournament/services"
)

// currentMatchParam selects the open match in place of a numeric ID.
const currentMatchParam = "current"

type VoteHandler struct {
	voteService services.VoteService
}

func NewVoteHandler(vs services.VoteService) *VoteHandler {
	return &VoteHandler{voteService: vs}
}

type castVoteRequest struct {
	MovieID int64 `json:"movie_id"`
}

// CastVote godoc
// @Summary      Cast a vote
// @Description  One vote per member per match. 409 already_voted, 422 match_not_open.
// @Tags         votes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        matchID  path  string           true  "match ID or \"current\""
// @Param        body     body  castVoteRequest  true  "vote"
// @Success      201  {object}  services.CastVoteResult
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /matches/{matchID}/votes [post]
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.MemberFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r)
		return
	}

	input := services.CastVoteInput{MemberID: member.ID}
	if chi.URLParam(r, "matchID") != currentMatchParam {
		matchID, err := getIDFromURL(r, "matchID")
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		input.MatchID = &matchID
	}

	var req castVoteRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.MovieID = req.MovieID

	result, err := h.voteService.CastVote(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetMyVote godoc
// @Summary   The caller's vote in a match
// @Tags      votes
// @Produce   json
// @Security  BearerAuth
// @Param     matchID  path  string  true  "match ID or \"current\""
// @Success   200  {object}  models.Vote
// @Failure   404  {object}  map[string]string
// @Router    /matches/{matchID}/votes/me [get]
func (h *VoteHandler) GetMyVote(w http.ResponseWriter, r *http.Request) {
	member, ok := middleware.MemberFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r)
		return
	}

	var matchID *int64
	if chi.URLParam(r, "matchID") != currentMatchParam {
		id, err := getIDFromURL(r, "matchID")
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		matchID = &id
	}

	vote, err := h.voteService.MemberVote(r.Context(), member.ID, matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, vote, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
