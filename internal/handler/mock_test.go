package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/meyasu/internal/board"
	"github.com/hitoshi/meyasu/internal/model"
)

// --- モック定義 ---

// mockBoardService はBoardServiceInterfaceのモック実装。
type mockBoardService struct {
	listCategoriesFn func(ctx context.Context) ([]*model.Category, error)
	listOpinionsFn   func(ctx context.Context, opts board.ListOptions) ([]*model.Opinion, error)
	getOpinionFn     func(ctx context.Context, opinionID int64) (*model.Opinion, error)
	submitOpinionFn  func(ctx context.Context, req board.Requester, in board.OpinionInput) (*model.Opinion, error)
	voteOpinionFn    func(ctx context.Context, req board.Requester, opinionID int64, voteType model.OpinionVoteType) (model.OpinionVoteCounts, error)
	myVoteFn         func(ctx context.Context, visitorID, opinionID int64) (*model.OpinionVote, error)
	listSolutionsFn  func(ctx context.Context, opinionID int64) ([]*model.Solution, error)
	submitSolutionFn func(ctx context.Context, req board.Requester, in board.SolutionInput) (*model.Solution, error)
	voteSolutionFn   func(ctx context.Context, req board.Requester, solutionID int64, voteType model.SolutionVoteType) (model.SolutionVoteCounts, error)
}

func (m *mockBoardService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockBoardService) ListOpinions(ctx context.Context, opts board.ListOptions) ([]*model.Opinion, error) {
	if m.listOpinionsFn != nil {
		return m.listOpinionsFn(ctx, opts)
	}
	return nil, nil
}

func (m *mockBoardService) GetOpinion(ctx context.Context, opinionID int64) (*model.Opinion, error) {
	if m.getOpinionFn != nil {
		return m.getOpinionFn(ctx, opinionID)
	}
	return nil, model.NewOpinionNotFoundError(opinionID)
}

func (m *mockBoardService) SubmitOpinion(ctx context.Context, req board.Requester, in board.OpinionInput) (*model.Opinion, error) {
	if m.submitOpinionFn != nil {
		return m.submitOpinionFn(ctx, req, in)
	}
	return &model.Opinion{ID: 1}, nil
}

func (m *mockBoardService) VoteOpinion(ctx context.Context, req board.Requester, opinionID int64, voteType model.OpinionVoteType) (model.OpinionVoteCounts, error) {
	if m.voteOpinionFn != nil {
		return m.voteOpinionFn(ctx, req, opinionID, voteType)
	}
	return model.OpinionVoteCounts{}, nil
}

func (m *mockBoardService) MyVote(ctx context.Context, visitorID, opinionID int64) (*model.OpinionVote, error) {
	if m.myVoteFn != nil {
		return m.myVoteFn(ctx, visitorID, opinionID)
	}
	return nil, nil
}

func (m *mockBoardService) ListSolutions(ctx context.Context, opinionID int64) ([]*model.Solution, error) {
	if m.listSolutionsFn != nil {
		return m.listSolutionsFn(ctx, opinionID)
	}
	return nil, nil
}

func (m *mockBoardService) SubmitSolution(ctx context.Context, req board.Requester, in board.SolutionInput) (*model.Solution, error) {
	if m.submitSolutionFn != nil {
		return m.submitSolutionFn(ctx, req, in)
	}
	return &model.Solution{ID: 1}, nil
}

func (m *mockBoardService) VoteSolution(ctx context.Context, req board.Requester, solutionID int64, voteType model.SolutionVoteType) (model.SolutionVoteCounts, error) {
	if m.voteSolutionFn != nil {
		return m.voteSolutionFn(ctx, req, solutionID, voteType)
	}
	return model.SolutionVoteCounts{}, nil
}

// mockVisitors は匿名IDの解決と発行のモック実装。
type mockVisitors struct {
	resolveFn         func(ctx context.Context, r *http.Request) (int64, bool, error)
	resolveOrCreateFn func(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, error)
	created           int
}

func (m *mockVisitors) Resolve(ctx context.Context, r *http.Request) (int64, bool, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, r)
	}
	return 0, false, nil
}

func (m *mockVisitors) ResolveOrCreate(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, error) {
	m.created++
	if m.resolveOrCreateFn != nil {
		return m.resolveOrCreateFn(ctx, w, r)
	}
	return 1, nil
}

// mockAdminAuth はAdminAuthServiceInterfaceのモック実装。
type mockAdminAuth struct {
	loginFn func(ctx context.Context, origin, password string) (*http.Cookie, error)
}

func (m *mockAdminAuth) Login(ctx context.Context, origin, password string) (*http.Cookie, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, origin, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAdminAuth) LogoutCookie() *http.Cookie {
	return &http.Cookie{Name: "admin_session", Value: "", Path: "/", MaxAge: -1}
}

// mockModeration はModerationServiceInterfaceのモック実装。
type mockModeration struct {
	adminListOpinionsFn func(ctx context.Context, opts board.ListOptions) ([]*model.Opinion, error)
	setVisibilityFn     func(ctx context.Context, opinionID int64, visible bool) error
	deleteOpinionFn     func(ctx context.Context, opinionID int64, reason string) error
	deleteSolutionFn    func(ctx context.Context, solutionID int64, reason string) error
	listDeletionLogsFn  func(ctx context.Context, limit, offset int) ([]*model.DeletionLog, error)
}

func (m *mockModeration) AdminListOpinions(ctx context.Context, opts board.ListOptions) ([]*model.Opinion, error) {
	if m.adminListOpinionsFn != nil {
		return m.adminListOpinionsFn(ctx, opts)
	}
	return nil, nil
}

func (m *mockModeration) SetOpinionVisibility(ctx context.Context, opinionID int64, visible bool) error {
	if m.setVisibilityFn != nil {
		return m.setVisibilityFn(ctx, opinionID, visible)
	}
	return nil
}

func (m *mockModeration) DeleteOpinion(ctx context.Context, opinionID int64, reason string) error {
	if m.deleteOpinionFn != nil {
		return m.deleteOpinionFn(ctx, opinionID, reason)
	}
	return nil
}

func (m *mockModeration) DeleteSolution(ctx context.Context, solutionID int64, reason string) error {
	if m.deleteSolutionFn != nil {
		return m.deleteSolutionFn(ctx, solutionID, reason)
	}
	return nil
}

func (m *mockModeration) ListDeletionLogs(ctx context.Context, limit, offset int) ([]*model.DeletionLog, error) {
	if m.listDeletionLogsFn != nil {
		return m.listDeletionLogsFn(ctx, limit, offset)
	}
	return nil, nil
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
