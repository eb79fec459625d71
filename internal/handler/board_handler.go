package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/meyasu/internal/board"
	"github.com/hitoshi/meyasu/internal/middleware"
	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/visitor"
)

// BoardServiceInterface は公開APIが必要とするサービスインターフェース。
type BoardServiceInterface interface {
	ListCategories(ctx context.Context) ([]*model.Category, error)
	ListOpinions(ctx context.Context, opts board.ListOptions) ([]*model.Opinion, error)
	GetOpinion(ctx context.Context, opinionID int64) (*model.Opinion, error)
	SubmitOpinion(ctx context.Context, req board.Requester, in board.OpinionInput) (*model.Opinion, error)
	VoteOpinion(ctx context.Context, req board.Requester, opinionID int64, voteType model.OpinionVoteType) (model.OpinionVoteCounts, error)
	MyVote(ctx context.Context, visitorID, opinionID int64) (*model.OpinionVote, error)
	ListSolutions(ctx context.Context, opinionID int64) ([]*model.Solution, error)
	SubmitSolution(ctx context.Context, req board.Requester, in board.SolutionInput) (*model.Solution, error)
	VoteSolution(ctx context.Context, req board.Requester, solutionID int64, voteType model.SolutionVoteType) (model.SolutionVoteCounts, error)
}

// VisitorIssuer は匿名IDの解決と発行に必要なインターフェース。
// visitor.Managerの部分集合として定義する。
type VisitorIssuer interface {
	ResolveOrCreate(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, error)
}

// BoardHandler は意見・解決策・投票の公開APIハンドラー。
type BoardHandler struct {
	service    BoardServiceInterface
	visitors   VisitorIssuer
	trustProxy bool
}

// NewBoardHandler はBoardHandlerを生成する。
func NewBoardHandler(service BoardServiceInterface, visitors VisitorIssuer, trustProxy bool) *BoardHandler {
	return &BoardHandler{
		service:    service,
		visitors:   visitors,
		trustProxy: trustProxy,
	}
}

type submitOpinionRequest struct {
	CategoryID       int64  `json:"category_id"`
	ProblemStatement string `json:"problem_statement"`
	SolutionProposal string `json:"solution_proposal"`
}

type submitSolutionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type voteRequest struct {
	VoteType string `json:"vote_type"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

type opinionVoteResponse struct {
	AgreeCount    int `json:"agree_count"`
	DisagreeCount int `json:"disagree_count"`
	PassCount     int `json:"pass_count"`
}

type solutionVoteResponse struct {
	SupportCount int `json:"support_count"`
	OpposeCount  int `json:"oppose_count"`
	PassCount    int `json:"pass_count"`
}

type myVoteResponse struct {
	HasVoted bool    `json:"has_voted"`
	VoteType *string `json:"vote_type"`
}

// requester はリクエストから操作者を組み立てる。
// 匿名IDの発行は検査とレート制限を通過した後にサービス層から呼び出される。
func (h *BoardHandler) requester(w http.ResponseWriter, r *http.Request) board.Requester {
	return board.Requester{
		Origin: middleware.ClientIP(r, h.trustProxy),
		Token:  visitor.TokenFromRequest(r),
		Identify: func(ctx context.Context) (int64, error) {
			id, err := h.visitors.ResolveOrCreate(ctx, w, r)
			if err != nil {
				return 0, err
			}
			middleware.AnnotateVisitor(r.Context(), id)
			return id, nil
		},
	}
}

// ListCategories はカテゴリ一覧を返す。
// GET /api/categories
func (h *BoardHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListOpinions は公開中の意見一覧を返す。
// GET /api/opinions?category_id=&include_feedback=&limit=&offset=
func (h *BoardHandler) ListOpinions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	opts := board.ListOptions{Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			handleServiceError(w, model.NewValidationError("category_idが正しくありません"))
			return
		}
		opts.CategoryID = id
	}
	opts.IncludeFeedback = r.URL.Query().Get("include_feedback") == "true"

	opinions, err := h.service.ListOpinions(r.Context(), opts)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]opinionResponse, 0, len(opinions))
	for _, o := range opinions {
		resp = append(resp, toOpinionResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOpinion は公開中の意見を1件返す。
// GET /api/opinions/{id}
func (h *BoardHandler) GetOpinion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	opinion, err := h.service.GetOpinion(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOpinionResponse(opinion))
}

// SubmitOpinion は意見を投稿する。
// POST /api/opinions
func (h *BoardHandler) SubmitOpinion(w http.ResponseWriter, r *http.Request) {
	var req submitOpinionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	opinion, err := h.service.SubmitOpinion(r.Context(), h.requester(w, r), board.OpinionInput{
		CategoryID:       req.CategoryID,
		ProblemStatement: req.ProblemStatement,
		SolutionProposal: req.SolutionProposal,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: opinion.ID})
}

// VoteOpinion は意見に投票する。同じ訪問者の再投票は種別の変更として扱う。
// POST /api/opinions/{id}/vote
func (h *BoardHandler) VoteOpinion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	counts, err := h.service.VoteOpinion(r.Context(), h.requester(w, r), id, model.OpinionVoteType(req.VoteType))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opinionVoteResponse{
		AgreeCount:    counts.Agree,
		DisagreeCount: counts.Disagree,
		PassCount:     counts.Pass,
	})
}

// MyVote はリクエスト元の訪問者が意見に投票済みかどうかを返す。
// 匿名IDの発行は行わない。
// GET /api/opinions/{id}/my-vote
func (h *BoardHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	visitorID, _ := middleware.VisitorIDFromContext(r.Context())
	vote, err := h.service.MyVote(r.Context(), visitorID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := myVoteResponse{}
	if vote != nil {
		voteType := string(vote.VoteType)
		resp.HasVoted = true
		resp.VoteType = &voteType
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListSolutions は意見に対する公開中の解決策一覧を返す。
// GET /api/opinions/{id}/solutions
func (h *BoardHandler) ListSolutions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	solutions, err := h.service.ListSolutions(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]solutionResponse, 0, len(solutions))
	for _, s := range solutions {
		resp = append(resp, toSolutionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitSolution は意見に解決策を投稿する。
// POST /api/opinions/{id}/solutions
func (h *BoardHandler) SubmitSolution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	var req submitSolutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	solution, err := h.service.SubmitSolution(r.Context(), h.requester(w, r), board.SolutionInput{
		OpinionID:   id,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: solution.ID})
}

// VoteSolution は解決策に投票する。
// POST /api/solutions/{id}/vote
func (h *BoardHandler) VoteSolution(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	counts, err := h.service.VoteSolution(r.Context(), h.requester(w, r), id, model.SolutionVoteType(req.VoteType))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, solutionVoteResponse{
		SupportCount: counts.Support,
		OpposeCount:  counts.Oppose,
		PassCount:    counts.Pass,
	})
}
