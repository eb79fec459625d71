package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/meyasu/internal/board"
	"github.com/hitoshi/meyasu/internal/middleware"
	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/security"
)

// AdminAuthServiceInterface は管理者ログインに必要なサービスインターフェース。
type AdminAuthServiceInterface interface {
	Login(ctx context.Context, origin, password string) (*http.Cookie, error)
	LogoutCookie() *http.Cookie
}

// ModerationServiceInterface はモデレーションに必要なサービスインターフェース。
type ModerationServiceInterface interface {
	AdminListOpinions(ctx context.Context, opts board.ListOptions) ([]*model.Opinion, error)
	SetOpinionVisibility(ctx context.Context, opinionID int64, visible bool) error
	DeleteOpinion(ctx context.Context, opinionID int64, reason string) error
	DeleteSolution(ctx context.Context, solutionID int64, reason string) error
	ListDeletionLogs(ctx context.Context, limit, offset int) ([]*model.DeletionLog, error)
}

// PIIInspector は管理画面で表示する個人情報の検出に必要なインターフェース。
type PIIInspector interface {
	Detect(text string) security.PIIDetectionResult
}

// AdminHandler は管理者向けAPIハンドラー。
type AdminHandler struct {
	auth       AdminAuthServiceInterface
	moderation ModerationServiceInterface
	pii        PIIInspector
	trustProxy bool
}

// NewAdminHandler はAdminHandlerを生成する。
// piiがnilの場合は標準のPIIDetectorを使用する。
func NewAdminHandler(auth AdminAuthServiceInterface, moderation ModerationServiceInterface, pii PIIInspector, trustProxy bool) *AdminHandler {
	if pii == nil {
		pii = security.NewPIIDetector()
	}
	return &AdminHandler{
		auth:       auth,
		moderation: moderation,
		pii:        pii,
		trustProxy: trustProxy,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

type deleteRequest struct {
	Reason string `json:"reason"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// Login は管理者パスワードを検証し、セッションクッキーを設定する。
// POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	cookie, err := h.auth.Login(r.Context(), middleware.ClientIP(r, h.trustProxy), req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, cookie)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Logout は管理者セッションクッキーを削除する。
// POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.auth.LogoutCookie())
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ListOpinions は非公開を含む全意見を返す。
// GET /api/admin/opinions
func (h *AdminHandler) ListOpinions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	opinions, err := h.moderation.AdminListOpinions(r.Context(), board.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]adminOpinionResponse, 0, len(opinions))
	for _, o := range opinions {
		resp = append(resp, adminOpinionResponse{
			opinionResponse: toOpinionResponse(o),
			IsVisible:       o.IsVisible,
			IsModerated:     o.IsModerated,
			PIITypes:        h.detectPIITypes(o.ProblemStatement, o.SolutionProposal),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// detectPIITypes は各フィールドで検出された個人情報の種別を重複なく返す。
func (h *AdminHandler) detectPIITypes(fields ...string) []string {
	types := []string{}
	seen := make(map[security.PIIType]bool)
	for _, f := range fields {
		for _, t := range h.pii.Detect(f).DetectedTypes {
			if seen[t] {
				continue
			}
			seen[t] = true
			types = append(types, string(t))
		}
	}
	return types
}

// SetVisibility は意見の公開状態を切り替える。
// PUT /api/admin/opinions/{id}/visibility
func (h *AdminHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}
	if req.Visible == nil {
		handleServiceError(w, model.NewValidationError("visibleを指定してください"))
		return
	}

	if err := h.moderation.SetOpinionVisibility(r.Context(), id, *req.Visible); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// DeleteOpinion は意見を削除し、削除ログを残す。
// DELETE /api/admin/opinions/{id}
func (h *AdminHandler) DeleteOpinion(w http.ResponseWriter, r *http.Request) {
	h.deletePost(w, r, h.moderation.DeleteOpinion)
}

// DeleteSolution は解決策を削除し、削除ログを残す。
// DELETE /api/admin/solutions/{id}
func (h *AdminHandler) DeleteSolution(w http.ResponseWriter, r *http.Request) {
	h.deletePost(w, r, h.moderation.DeleteSolution)
}

// deletePost は削除理由を任意のボディから読み取り、削除を実行する。
func (h *AdminHandler) deletePost(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id int64, reason string) error) {
	id, err := pathID(r, "id")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	var req deleteRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err)
			return
		}
	}

	if err := del(r.Context(), id, req.Reason); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// ListDeletionLogs は削除ログを新しい順に返す。
// GET /api/admin/deletion-logs
func (h *AdminHandler) ListDeletionLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	logs, err := h.moderation.ListDeletionLogs(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]deletionLogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, toDeletionLogResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}
