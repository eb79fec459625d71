package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/meyasu/internal/board"
	"github.com/hitoshi/meyasu/internal/model"
)

func TestAdminLogin(t *testing.T) {
	auth := &mockAdminAuth{
		loginFn: func(ctx context.Context, origin, password string) (*http.Cookie, error) {
			if origin != "198.51.100.3" {
				t.Errorf("origin = %q", origin)
			}
			if password != "correct" {
				return nil, model.NewInvalidCredentialsError()
			}
			return &http.Cookie{Name: "admin_session", Value: "jwt", HttpOnly: true}, nil
		},
	}
	h := NewAdminHandler(auth, &mockModeration{}, nil, false)

	tests := []struct {
		name     string
		body     string
		status   int
		cookie   bool
		wantCode string
	}{
		{"成功", `{"password":"correct"}`, http.StatusOK, true, ""},
		{"パスワード不一致", `{"password":"wrong"}`, http.StatusUnauthorized, false, model.ErrCodeInvalidCredentials},
		{"不正なボディ", `password=correct`, http.StatusBadRequest, false, model.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(tt.body))
			req.RemoteAddr = "198.51.100.3:1234"
			w := httptest.NewRecorder()
			h.Login(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if got := len(w.Result().Cookies()) == 1; got != tt.cookie {
				t.Errorf("cookie set = %v, want %v", got, tt.cookie)
			}
			if tt.wantCode != "" {
				if got := parseAPIErrorResponse(t, w)["code"]; got != tt.wantCode {
					t.Errorf("code = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}

func TestAdminLogin_RateLimited(t *testing.T) {
	auth := &mockAdminAuth{
		loginFn: func(ctx context.Context, origin, password string) (*http.Cookie, error) {
			return nil, model.NewRateLimitedError(10 * time.Minute)
		},
	}
	h := NewAdminHandler(auth, &mockModeration{}, nil, false)

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{"password":"x"}`)))

	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "600" {
		t.Errorf("status = %d, Retry-After = %q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestAdminLogout(t *testing.T) {
	h := NewAdminHandler(&mockAdminAuth{}, &mockModeration{}, nil, false)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil))

	cookies := w.Result().Cookies()
	if w.Code != http.StatusOK || len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("status = %d, cookies = %+v", w.Code, cookies)
	}
}

func TestAdminListOpinions_IncludesVisibility(t *testing.T) {
	moderation := &mockModeration{
		adminListOpinionsFn: func(ctx context.Context, opts board.ListOptions) ([]*model.Opinion, error) {
			if opts.Limit != 5 {
				t.Errorf("limit = %d, want 5", opts.Limit)
			}
			return []*model.Opinion{{ID: 1, IsVisible: false, IsModerated: true}}, nil
		},
	}
	h := NewAdminHandler(&mockAdminAuth{}, moderation, nil, false)

	w := httptest.NewRecorder()
	h.ListOpinions(w, httptest.NewRequest(http.MethodGet, "/api/admin/opinions?limit=5", nil))

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 1 || resp[0]["is_visible"] != false || resp[0]["is_moderated"] != true || resp[0]["id"] != float64(1) {
		t.Errorf("response = %+v", resp)
	}
}

func TestAdminListOpinions_PIITypes(t *testing.T) {
	moderation := &mockModeration{
		adminListOpinionsFn: func(ctx context.Context, opts board.ListOptions) ([]*model.Opinion, error) {
			return []*model.Opinion{
				{ID: 1, ProblemStatement: "東京都新宿区西新宿の駐輪場が狭い", SolutionProposal: "3丁目に移設してほしい。学籍番号: A1234567"},
				{ID: 2, ProblemStatement: "食堂のメニューを増やしてほしい", SolutionProposal: "麺類を追加する"},
			}, nil
		},
	}
	h := NewAdminHandler(&mockAdminAuth{}, moderation, nil, false)

	w := httptest.NewRecorder()
	h.ListOpinions(w, httptest.NewRequest(http.MethodGet, "/api/admin/opinions", nil))

	var resp []struct {
		ID       int64    `json:"id"`
		PIITypes []string `json:"pii_types"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len(resp) = %d, want 2", len(resp))
	}

	want := []string{"address", "studentId"}
	if strings.Join(resp[0].PIITypes, ",") != strings.Join(want, ",") {
		t.Errorf("opinion 1 pii_types = %v, want %v", resp[0].PIITypes, want)
	}
	if resp[1].PIITypes == nil || len(resp[1].PIITypes) != 0 {
		t.Errorf("opinion 2 pii_types = %v, want empty array", resp[1].PIITypes)
	}
}

func TestAdminSetVisibility(t *testing.T) {
	var gotID int64
	var gotVisible bool
	moderation := &mockModeration{
		setVisibilityFn: func(ctx context.Context, opinionID int64, visible bool) error {
			gotID, gotVisible = opinionID, visible
			if opinionID == 404 {
				return model.NewOpinionNotFoundError(opinionID)
			}
			return nil
		},
	}
	h := NewAdminHandler(&mockAdminAuth{}, moderation, nil, false)

	tests := []struct {
		name   string
		id     string
		body   string
		status int
	}{
		{"非公開にする", "3", `{"visible":false}`, http.StatusOK},
		{"visible未指定", "3", `{}`, http.StatusBadRequest},
		{"存在しない", "404", `{"visible":true}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/admin/opinions/"+tt.id+"/visibility", strings.NewReader(tt.body))
			req = withChiURLParam(req, "id", tt.id)
			w := httptest.NewRecorder()
			h.SetVisibility(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}

	if gotID != 404 || !gotVisible {
		t.Errorf("last call = (%d, %v)", gotID, gotVisible)
	}
}

func TestAdminDelete(t *testing.T) {
	var opinionReason, solutionReason string
	moderation := &mockModeration{
		deleteOpinionFn: func(ctx context.Context, opinionID int64, reason string) error {
			opinionReason = reason
			return nil
		},
		deleteSolutionFn: func(ctx context.Context, solutionID int64, reason string) error {
			solutionReason = reason
			return model.NewSolutionNotFoundError(solutionID)
		},
	}
	h := NewAdminHandler(&mockAdminAuth{}, moderation, nil, false)

	t.Run("理由付きで意見を削除", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/opinions/2", strings.NewReader(`{"reason":"重複投稿"}`))
		req = withChiURLParam(req, "id", "2")
		w := httptest.NewRecorder()
		h.DeleteOpinion(w, req)

		if w.Code != http.StatusOK || opinionReason != "重複投稿" {
			t.Errorf("status = %d, reason = %q", w.Code, opinionReason)
		}
	})

	t.Run("ボディなしで意見を削除", func(t *testing.T) {
		opinionReason = "unchanged"
		req := withChiURLParam(httptest.NewRequest(http.MethodDelete, "/api/admin/opinions/2", nil), "id", "2")
		w := httptest.NewRecorder()
		h.DeleteOpinion(w, req)

		if w.Code != http.StatusOK || opinionReason != "" {
			t.Errorf("status = %d, reason = %q", w.Code, opinionReason)
		}
	})

	t.Run("存在しない解決策", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/admin/solutions/8", strings.NewReader(`{"reason":"spam"}`))
		req = withChiURLParam(req, "id", "8")
		w := httptest.NewRecorder()
		h.DeleteSolution(w, req)

		if w.Code != http.StatusNotFound || solutionReason != "spam" {
			t.Errorf("status = %d, reason = %q", w.Code, solutionReason)
		}
	})
}

func TestAdminListDeletionLogs(t *testing.T) {
	deletedAt := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	moderation := &mockModeration{
		listDeletionLogsFn: func(ctx context.Context, limit, offset int) ([]*model.DeletionLog, error) {
			return []*model.DeletionLog{
				{ID: 1, PostType: model.PostTypeOpinion, PostID: 3, Content: `{"preview":"[EMAIL]に連絡","categoryId":2}`, Reason: "個人情報", DeletedAt: deletedAt},
				{ID: 2, PostType: model.PostTypeSolution, PostID: 4, Content: "legacy text", DeletedAt: deletedAt},
			}, nil
		},
	}
	h := NewAdminHandler(&mockAdminAuth{}, moderation, nil, false)

	w := httptest.NewRecorder()
	h.ListDeletionLogs(w, httptest.NewRequest(http.MethodGet, "/api/admin/deletion-logs", nil))

	var resp []struct {
		PostType string          `json:"post_type"`
		Content  json.RawMessage `json:"content"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("len = %d, want 2", len(resp))
	}

	var preview struct {
		Preview    string `json:"preview"`
		CategoryID int64  `json:"categoryId"`
	}
	if err := json.Unmarshal(resp[0].Content, &preview); err != nil {
		t.Fatalf("content should be embedded as JSON: %v", err)
	}
	if preview.Preview != "[EMAIL]に連絡" || preview.CategoryID != 2 {
		t.Errorf("preview = %+v", preview)
	}

	var legacy string
	if err := json.Unmarshal(resp[1].Content, &legacy); err != nil || legacy != "legacy text" {
		t.Errorf("non-JSON content should be returned as a string: %q, %v", legacy, err)
	}
}
