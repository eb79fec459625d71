// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/meyasu/internal/middleware"
	"github.com/hitoshi/meyasu/internal/model"
)

// maxBodyBytes はリクエストボディの上限。最長の入力欄（1000文字）の数倍を許容する。
const maxBodyBytes = 16 << 10

// categoryResponse はカテゴリのAPIレスポンス。
type categoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsFeedback  bool   `json:"is_feedback"`
}

// opinionResponse は意見のAPIレスポンス。投稿者の訪問者IDは含めない。
type opinionResponse struct {
	ID               int64     `json:"id"`
	CategoryID       int64     `json:"category_id"`
	ProblemStatement string    `json:"problem_statement"`
	SolutionProposal string    `json:"solution_proposal"`
	AgreeCount       int       `json:"agree_count"`
	DisagreeCount    int       `json:"disagree_count"`
	PassCount        int       `json:"pass_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// adminOpinionResponse は管理画面向けの意見レスポンス。
type adminOpinionResponse struct {
	opinionResponse
	IsVisible   bool     `json:"is_visible"`
	IsModerated bool     `json:"is_moderated"`
	PIITypes    []string `json:"pii_types"`
}

// solutionResponse は解決策のAPIレスポンス。
type solutionResponse struct {
	ID           int64     `json:"id"`
	OpinionID    int64     `json:"opinion_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	SupportCount int       `json:"support_count"`
	OpposeCount  int       `json:"oppose_count"`
	PassCount    int       `json:"pass_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// deletionLogResponse は削除ログのAPIレスポンス。
type deletionLogResponse struct {
	ID        int64           `json:"id"`
	PostType  string          `json:"post_type"`
	PostID    int64           `json:"post_id"`
	Content   json.RawMessage `json:"content"`
	Reason    string          `json:"reason"`
	DeletedAt time.Time       `json:"deleted_at"`
}

func toCategoryResponse(c *model.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsFeedback:  c.IsFeedback,
	}
}

func toOpinionResponse(o *model.Opinion) opinionResponse {
	return opinionResponse{
		ID:               o.ID,
		CategoryID:       o.CategoryID,
		ProblemStatement: o.ProblemStatement,
		SolutionProposal: o.SolutionProposal,
		AgreeCount:       o.Counts.Agree,
		DisagreeCount:    o.Counts.Disagree,
		PassCount:        o.Counts.Pass,
		CreatedAt:        o.CreatedAt,
	}
}

func toSolutionResponse(s *model.Solution) solutionResponse {
	return solutionResponse{
		ID:           s.ID,
		OpinionID:    s.OpinionID,
		Title:        s.Title,
		Description:  s.Description,
		SupportCount: s.Counts.Support,
		OpposeCount:  s.Counts.Oppose,
		PassCount:    s.Counts.Pass,
		CreatedAt:    s.CreatedAt,
	}
}

func toDeletionLogResponse(l *model.DeletionLog) deletionLogResponse {
	content := json.RawMessage(l.Content)
	if !json.Valid(content) {
		content, _ = json.Marshal(l.Content)
	}
	return deletionLogResponse{
		ID:        l.ID,
		PostType:  string(l.PostType),
		PostID:    l.PostID,
		Content:   content,
		Reason:    l.Reason,
		DeletedAt: l.DeletedAt,
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをデコードする。失敗した場合は入力不正のエラーを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return model.NewValidationError("リクエストが大きすぎます")
		}
		return model.NewValidationError("リクエストボディの解析に失敗しました")
	}
	return nil
}

// pathID はURLパラメータのIDを正の整数として取り出す。
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewValidationError("IDが正しくありません")
	}
	return id, nil
}

// queryInt はクエリパラメータを整数として取り出す。未指定の場合は0を返す。
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, model.NewValidationError(name + "が正しくありません")
	}
	return n, nil
}

// pagination はlimitとoffsetのクエリパラメータを取り出す。
func pagination(r *http.Request) (int, int, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// handleServiceError はサービス層から返されたエラーを統一フォーマットのレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	middleware.WriteError(w, err)
}
