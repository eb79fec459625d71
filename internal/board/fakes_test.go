package board

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hitoshi/meyasu/internal/model"
	"github.com/hitoshi/meyasu/internal/ratelimit"
	"github.com/hitoshi/meyasu/internal/repository"
	"github.com/hitoshi/meyasu/internal/security"
)

// --- モック ---

var errDB = errors.New("connection refused")

type fakeCategories struct {
	categories map[int64]*model.Category
	err        error
}

func (f *fakeCategories) List(ctx context.Context) ([]*model.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*model.Category
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCategories) FindByID(ctx context.Context, id int64) (*model.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.categories[id], nil
}

type fakeOpinions struct {
	mu         sync.Mutex
	opinions   map[int64]*model.Opinion
	nextID     int64
	creates    int
	lastFilter repository.OpinionFilter
	deleted    []*model.DeletionLog
	createErr  error
}

func newFakeOpinions() *fakeOpinions {
	return &fakeOpinions{opinions: make(map[int64]*model.Opinion), nextID: 1}
}

// add はテスト用に意見を直接登録する。
func (f *fakeOpinions) add(o *model.Opinion) *model.Opinion {
	f.mu.Lock()
	defer f.mu.Unlock()
	o.ID = f.nextID
	f.nextID++
	f.opinions[o.ID] = o
	return o
}

func (f *fakeOpinions) Create(ctx context.Context, o *model.Opinion) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	o.CreatedAt = time.Now()
	f.add(o)
	return nil
}

func (f *fakeOpinions) FindByID(ctx context.Context, id int64) (*model.Opinion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opinions[id], nil
}

func (f *fakeOpinions) List(ctx context.Context, filter repository.OpinionFilter) ([]*model.Opinion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []*model.Opinion
	for _, o := range f.opinions {
		if !filter.IncludeHidden && !o.IsVisible {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOpinions) SetVisibility(ctx context.Context, id int64, visible bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.opinions[id]
	if !ok {
		return false, nil
	}
	o.IsVisible = visible
	o.IsModerated = true
	return true, nil
}

func (f *fakeOpinions) DeleteWithLog(ctx context.Context, id int64, log *model.DeletionLog) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.opinions[id]; !ok {
		return false, nil
	}
	delete(f.opinions, id)
	f.deleted = append(f.deleted, log)
	return true, nil
}

type fakeSolutions struct {
	mu        sync.Mutex
	solutions map[int64]*model.Solution
	nextID    int64
	creates   int
	deleted   []*model.DeletionLog
}

func newFakeSolutions() *fakeSolutions {
	return &fakeSolutions{solutions: make(map[int64]*model.Solution), nextID: 1}
}

func (f *fakeSolutions) add(s *model.Solution) *model.Solution {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = f.nextID
	f.nextID++
	f.solutions[s.ID] = s
	return s
}

func (f *fakeSolutions) Create(ctx context.Context, s *model.Solution) error {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	f.add(s)
	return nil
}

func (f *fakeSolutions) FindByID(ctx context.Context, id int64) (*model.Solution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.solutions[id], nil
}

func (f *fakeSolutions) ListByOpinion(ctx context.Context, opinionID int64) ([]*model.Solution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Solution
	for _, s := range f.solutions {
		if s.OpinionID == opinionID && s.IsVisible {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSolutions) DeleteWithLog(ctx context.Context, id int64, log *model.DeletionLog) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.solutions[id]; !ok {
		return false, nil
	}
	delete(f.solutions, id)
	f.deleted = append(f.deleted, log)
	return true, nil
}

type voteKey struct{ visitorID, targetID int64 }

type fakeVotes struct {
	mu            sync.Mutex
	opinionVotes  map[voteKey]model.OpinionVoteType
	solutionVotes map[voteKey]model.SolutionVoteType
	findCalls     int
}

func newFakeVotes() *fakeVotes {
	return &fakeVotes{
		opinionVotes:  make(map[voteKey]model.OpinionVoteType),
		solutionVotes: make(map[voteKey]model.SolutionVoteType),
	}
}

func (f *fakeVotes) UpsertOpinionVote(ctx context.Context, visitorID, opinionID int64, voteType model.OpinionVoteType) (model.OpinionVoteCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opinionVotes[voteKey{visitorID, opinionID}] = voteType

	var counts model.OpinionVoteCounts
	for k, v := range f.opinionVotes {
		if k.targetID != opinionID {
			continue
		}
		switch v {
		case model.OpinionVoteAgree:
			counts.Agree++
		case model.OpinionVoteDisagree:
			counts.Disagree++
		case model.OpinionVotePass:
			counts.Pass++
		}
	}
	return counts, nil
}

func (f *fakeVotes) FindOpinionVote(ctx context.Context, visitorID, opinionID int64) (*model.OpinionVote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	v, ok := f.opinionVotes[voteKey{visitorID, opinionID}]
	if !ok {
		return nil, nil
	}
	return &model.OpinionVote{VisitorID: visitorID, OpinionID: opinionID, VoteType: v}, nil
}

func (f *fakeVotes) UpsertSolutionVote(ctx context.Context, visitorID, solutionID int64, voteType model.SolutionVoteType) (model.SolutionVoteCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.solutionVotes[voteKey{visitorID, solutionID}] = voteType

	var counts model.SolutionVoteCounts
	for k, v := range f.solutionVotes {
		if k.targetID != solutionID {
			continue
		}
		switch v {
		case model.SolutionVoteSupport:
			counts.Support++
		case model.SolutionVoteOppose:
			counts.Oppose++
		case model.SolutionVotePass:
			counts.Pass++
		}
	}
	return counts, nil
}

type fakeDeletionLogs struct {
	limit, offset int
}

func (f *fakeDeletionLogs) List(ctx context.Context, limit, offset int) ([]*model.DeletionLog, error) {
	f.limit, f.offset = limit, offset
	return nil, nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	rejected []string
	denied   []string
	accepted []string
	votes    []string
}

func (m *recordingMetrics) RecordContentRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, reason)
}
func (m *recordingMetrics) RecordRateLimitDenied(class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied = append(m.denied, class)
}
func (m *recordingMetrics) RecordSubmissionAccepted(postType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accepted = append(m.accepted, postType)
}
func (m *recordingMetrics) RecordVote(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes = append(m.votes, target)
}
func (m *recordingMetrics) RecordVisitorCreated()        {}
func (m *recordingMetrics) RecordVisitorsReaped(n int64) {}
func (m *recordingMetrics) RecordHTTPStatus(code int)    {}

type failingStore struct{}

func (failingStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

// --- セットアップ ---

type testBoard struct {
	svc        *Service
	categories *fakeCategories
	opinions   *fakeOpinions
	solutions  *fakeSolutions
	votes      *fakeVotes
	logs       *fakeDeletionLogs
	metrics    *recordingMetrics
}

func newTestBoard(store ratelimit.Store) *testBoard {
	if store == nil {
		store = ratelimit.NewMemoryStore()
	}
	tb := &testBoard{
		categories: &fakeCategories{categories: map[int64]*model.Category{
			1: {ID: 1, Name: "施設・設備"},
			5: {ID: 5, Name: "サイトへの要望", IsFeedback: true},
		}},
		opinions:  newFakeOpinions(),
		solutions: newFakeSolutions(),
		votes:     newFakeVotes(),
		logs:      &fakeDeletionLogs{},
		metrics:   &recordingMetrics{},
	}
	tb.svc = NewService(
		Repositories{
			Categories:   tb.categories,
			Opinions:     tb.opinions,
			Solutions:    tb.solutions,
			Votes:        tb.votes,
			DeletionLogs: tb.logs,
		},
		security.NewContentSanitizer(),
		security.NewContentFilter(),
		ratelimit.NewLimiter(store, ratelimit.DefaultPolicies()),
		tb.metrics,
	)
	return tb
}

// visitorRequester は固定の訪問者IDを返すRequesterと、Identifyの呼び出し回数を返す。
func visitorRequester(visitorID int64) (Requester, *int) {
	calls := 0
	return Requester{
		Origin: "203.0.113.10",
		Token:  "token-a",
		Identify: func(ctx context.Context) (int64, error) {
			calls++
			return visitorID, nil
		},
	}, &calls
}
