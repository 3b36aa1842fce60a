package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lanting/internal/models"
)

// ---- 内存版协作方，行为对齐 GORM 实现 ----

type fakeReactionStore struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*models.Reaction

	failCount error // 注入 CountByKind 错误
}

func newFakeReactionStore() *fakeReactionStore {
	return &fakeReactionStore{rows: make(map[uint]*models.Reaction)}
}

func sameTarget(r *models.Reaction, target TargetRef) bool {
	switch target.Kind {
	case TargetArticle:
		return r.ArticleID != nil && *r.ArticleID == target.ID
	case TargetComment:
		return r.CommentID != nil && *r.CommentID == target.ID
	}
	return false
}

func (s *fakeReactionStore) FindOne(target TargetRef, userID uint) (*models.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.UserID == userID && sameTarget(r, target) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeReactionStore) Create(r *models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// 唯一索引：(user, article) / (user, comment)
	for _, existing := range s.rows {
		if existing.UserID != r.UserID {
			continue
		}
		if (r.ArticleID != nil && existing.ArticleID != nil && *r.ArticleID == *existing.ArticleID) ||
			(r.CommentID != nil && existing.CommentID != nil && *r.CommentID == *existing.CommentID) {
			return fmt.Errorf("duplicate key value violates unique constraint")
		}
	}
	s.nextID++
	r.ID = s.nextID
	r.CreatedAt = time.Now()
	cp := *r
	s.rows[r.ID] = &cp
	return nil
}

func (s *fakeReactionStore) UpdateKind(id uint, kind models.ReactionKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[id]; ok {
		r.Kind = kind
	}
	return nil
}

func (s *fakeReactionStore) Delete(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *fakeReactionStore) CountByKind(target TargetRef, kind models.ReactionKind) (int64, error) {
	if s.failCount != nil {
		return 0, s.failCount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, r := range s.rows {
		if sameTarget(r, target) && r.Kind == kind {
			count++
		}
	}
	return count, nil
}

type fakeTargetStore struct {
	mu      sync.Mutex
	targets map[TargetRef]*TargetInfo
}

func newFakeTargetStore() *fakeTargetStore {
	return &fakeTargetStore{targets: make(map[TargetRef]*TargetInfo)}
}

func (s *fakeTargetStore) Find(target TargetRef) (*TargetInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.targets[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTargetNotFound, target)
	}
	cp := *info
	return &cp, nil
}

func (s *fakeTargetStore) SaveCounts(target TargetRef, likeCount, dislikeCount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.targets[target]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTargetNotFound, target)
	}
	info.LikeCount = likeCount
	info.DislikeCount = dislikeCount
	return nil
}

func (s *fakeTargetStore) stored(target TargetRef) (int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := s.targets[target]
	return info.LikeCount, info.DislikeCount
}

type fakeNotificationStore struct {
	mu   sync.Mutex
	rows []*models.Notification

	failFind   error
	failCreate error
}

func (s *fakeNotificationStore) FindMatching(recipient uint, actor uint, typ models.NotificationType, target TargetRef, threshold *int, since time.Time) (bool, error) {
	if s.failFind != nil {
		return false, s.failFind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.rows {
		if n.UserID != recipient || n.ActorID == nil || *n.ActorID != actor || n.Type != typ {
			continue
		}
		if n.TargetKind != string(target.Kind) || n.TargetID != target.ID {
			continue
		}
		if threshold != nil && (n.Threshold == nil || *n.Threshold != *threshold) {
			continue
		}
		if !since.IsZero() && n.CreatedAt.Before(since) {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (s *fakeNotificationStore) Create(n *models.Notification) error {
	if s.failCreate != nil {
		return s.failCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = uint(len(s.rows) + 1)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	cp := *n
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *fakeNotificationStore) all() []*models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Notification(nil), s.rows...)
}

// ---- 测试装置 ----

type engineFixture struct {
	engine        *ReactionEngine
	reactions     *fakeReactionStore
	targets       *fakeTargetStore
	notifications *fakeNotificationStore
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	reactions := newFakeReactionStore()
	targets := newFakeTargetStore()
	notifications := &fakeNotificationStore{}
	thresholds := map[TargetKind][]int{
		TargetArticle: {1, 5, 10, 25, 50, 100},
		TargetComment: {1, 5, 10, 25, 50, 100},
	}
	engine := NewReactionEngine(reactions, targets, notifications,
		NewNotificationDeduplicator(notifications, nil), thresholds)
	return &engineFixture{engine: engine, reactions: reactions, targets: targets, notifications: notifications}
}

func (f *engineFixture) addArticle(id, ownerID uint) TargetRef {
	target := TargetRef{Kind: TargetArticle, ID: id}
	f.targets.targets[target] = &TargetInfo{
		OwnerID: ownerID,
		Aid:     fmt.Sprintf("art%05d", id),
		Title:   "测试文章",
	}
	return target
}

func (f *engineFixture) mustReact(t *testing.T, target TargetRef, userID uint, kind models.ReactionKind) *ReactionResult {
	t.Helper()
	result, err := f.engine.React(target, userID, kind)
	if err != nil {
		t.Fatalf("React failed: %v", err)
	}
	return result
}

// ---- 用例 ----

func TestReactInvalidKind(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	_, err := f.engine.React(target, 2, "love")
	if !errors.Is(err, ErrInvalidReactionKind) {
		t.Errorf("expected ErrInvalidReactionKind, got %v", err)
	}

	_, err = f.engine.React(target, 2, "")
	if !errors.Is(err, ErrInvalidReactionKind) {
		t.Errorf("expected ErrInvalidReactionKind for empty kind, got %v", err)
	}
}

func TestReactTargetNotFound(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.React(TargetRef{Kind: TargetArticle, ID: 999}, 2, models.ReactionKindLike)
	if !errors.Is(err, ErrTargetNotFound) {
		t.Errorf("expected ErrTargetNotFound, got %v", err)
	}
}

func TestToggleRoundTrip(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	// 点赞
	result := f.mustReact(t, target, 2, models.ReactionKindLike)
	if result.UserReaction != models.ReactionKindLike {
		t.Errorf("expected like, got %s", result.UserReaction)
	}
	if result.LikeCount != 1 || result.DislikeCount != 0 {
		t.Errorf("expected 1/0, got %d/%d", result.LikeCount, result.DislikeCount)
	}

	// 再点一次 = 取消
	result = f.mustReact(t, target, 2, models.ReactionKindLike)
	if result.UserReaction != ReactionNone {
		t.Errorf("expected none after toggle-off, got %s", result.UserReaction)
	}
	if result.LikeCount != 0 || result.DislikeCount != 0 {
		t.Errorf("expected counts back to 0/0, got %d/%d", result.LikeCount, result.DislikeCount)
	}
}

func TestToggleFlipKind(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	f.mustReact(t, target, 2, models.ReactionKindLike)
	result := f.mustReact(t, target, 2, models.ReactionKindDislike)

	if result.UserReaction != models.ReactionKindDislike {
		t.Errorf("expected dislike, got %s", result.UserReaction)
	}
	if result.LikeCount != 0 || result.DislikeCount != 1 {
		t.Errorf("expected 0/1 after flip, got %d/%d", result.LikeCount, result.DislikeCount)
	}
}

// 任意操作序列后，存储的计数都必须等于反应行的真实数量
func TestCountersMatchRowsAfterSequences(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	seq := []struct {
		user uint
		kind models.ReactionKind
	}{
		{2, models.ReactionKindLike},
		{3, models.ReactionKindLike},
		{4, models.ReactionKindDislike},
		{2, models.ReactionKindLike},    // 取消
		{3, models.ReactionKindDislike}, // 翻转
		{5, models.ReactionKindLike},
		{4, models.ReactionKindDislike}, // 取消
		{3, models.ReactionKindLike},    // 翻回来
	}

	for _, step := range seq {
		f.mustReact(t, target, step.user, step.kind)

		likes, _ := f.reactions.CountByKind(target, models.ReactionKindLike)
		dislikes, _ := f.reactions.CountByKind(target, models.ReactionKindDislike)
		storedLikes, storedDislikes := f.targets.stored(target)
		if storedLikes != likes || storedDislikes != dislikes {
			t.Fatalf("counter drift: stored %d/%d, rows %d/%d", storedLikes, storedDislikes, likes, dislikes)
		}
	}
}

func TestSelfLikeNeverNotifies(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	// 作者自己点赞
	f.mustReact(t, target, 10, models.ReactionKindLike)

	if got := len(f.notifications.all()); got != 0 {
		t.Errorf("expected no notification for self-like, got %d", got)
	}
}

func TestFirstLikeNotifiesOwner(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	f.mustReact(t, target, 2, models.ReactionKindLike)

	notifications := f.notifications.all()
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	n := notifications[0]
	if n.UserID != 10 {
		t.Errorf("expected recipient 10, got %d", n.UserID)
	}
	if n.ActorID == nil || *n.ActorID != 2 {
		t.Errorf("expected actor 2, got %v", n.ActorID)
	}
	if n.Type != models.NotificationTypeLikeMilestone {
		t.Errorf("expected like_milestone, got %s", n.Type)
	}
	if n.Threshold == nil || *n.Threshold != 1 {
		t.Errorf("expected threshold 1, got %v", n.Threshold)
	}
	if n.LikeCount != 1 {
		t.Errorf("expected likes-at-emission 1, got %d", n.LikeCount)
	}
}

// 点赞-取消-再点赞：一小时窗口内不重复发"第一个赞"
func TestFirstLikeChurnDeduplicated(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	f.mustReact(t, target, 2, models.ReactionKindLike) // 通知
	f.mustReact(t, target, 2, models.ReactionKindLike) // 取消，无通知
	result := f.mustReact(t, target, 2, models.ReactionKindLike)

	if result.LikeCount != 1 {
		t.Errorf("expected like count 1, got %d", result.LikeCount)
	}
	if got := len(f.notifications.all()); got != 1 {
		t.Errorf("expected dedup to suppress repeat, got %d notifications", got)
	}
}

// 窗口过期后，同一个"第一个赞"允许再次通知
func TestFirstLikeRenotifiesAfterWindow(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	f.mustReact(t, target, 2, models.ReactionKindLike)
	f.mustReact(t, target, 2, models.ReactionKindLike) // 取消

	// 把已有通知拨回两小时前
	f.notifications.mu.Lock()
	f.notifications.rows[0].CreatedAt = time.Now().Add(-2 * time.Hour)
	f.notifications.mu.Unlock()

	f.mustReact(t, target, 2, models.ReactionKindLike)

	if got := len(f.notifications.all()); got != 2 {
		t.Errorf("expected renotify after window, got %d notifications", got)
	}
}

// 第 5 个赞来自 B：给作者发阈值 5 的通知
func TestThresholdFiveScenario(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	for user := uint(2); user <= 5; user++ {
		f.mustReact(t, target, user, models.ReactionKindLike)
	}
	result := f.mustReact(t, target, 6, models.ReactionKindLike)
	if result.LikeCount != 5 {
		t.Fatalf("expected 5 likes, got %d", result.LikeCount)
	}

	var found *models.Notification
	for _, n := range f.notifications.all() {
		if n.Threshold != nil && *n.Threshold == 5 {
			found = n
		}
	}
	if found == nil {
		t.Fatal("expected threshold-5 notification")
	}
	if found.ActorID == nil || *found.ActorID != 6 {
		t.Errorf("expected actor 6, got %v", found.ActorID)
	}
	if found.LikeCount != 5 {
		t.Errorf("expected likes-at-emission 5, got %d", found.LikeCount)
	}
}

// 高阈值一旦通知过，无论多久之后都不再重复
func TestHighThresholdNeverRenotifies(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	for user := uint(2); user <= 6; user++ {
		f.mustReact(t, target, user, models.ReactionKindLike)
	}

	// 阈值 5 的通知拨到一年前
	f.notifications.mu.Lock()
	for _, n := range f.notifications.rows {
		n.CreatedAt = time.Now().Add(-365 * 24 * time.Hour)
	}
	f.notifications.mu.Unlock()

	// 6 号取消再点，计数 4 -> 5 再次跨过阈值
	f.mustReact(t, target, 6, models.ReactionKindLike)
	f.mustReact(t, target, 6, models.ReactionKindLike)

	var thresholdFive int
	for _, n := range f.notifications.all() {
		if n.Threshold != nil && *n.Threshold == 5 {
			thresholdFive++
		}
	}
	if thresholdFive != 1 {
		t.Errorf("expected single threshold-5 notification ever, got %d", thresholdFive)
	}
}

// 点踩不触发里程碑
func TestDislikeNeverNotifies(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	f.mustReact(t, target, 2, models.ReactionKindDislike)

	if got := len(f.notifications.all()); got != 0 {
		t.Errorf("expected no notification for dislike, got %d", got)
	}
}

// 通知存储挂了：点赞本身必须照常成功
func TestNotificationFailureDoesNotFailReact(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)
	f.notifications.failCreate = errors.New("notification store down")

	result, err := f.engine.React(target, 2, models.ReactionKindLike)
	if err != nil {
		t.Fatalf("React must not fail on notification error: %v", err)
	}
	if result.LikeCount != 1 || result.UserReaction != models.ReactionKindLike {
		t.Errorf("unexpected result: %+v", result)
	}
}

// 查重失败时放行：通知照发（可能重复，但不会丢）
func TestDedupFailsOpen(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)
	f.notifications.failFind = errors.New("query timeout")

	result, err := f.engine.React(target, 2, models.ReactionKindLike)
	if err != nil {
		t.Fatalf("React failed: %v", err)
	}
	if result.UserReaction != models.ReactionKindLike {
		t.Errorf("expected like, got %s", result.UserReaction)
	}
	if got := len(f.notifications.all()); got != 1 {
		t.Errorf("expected notification despite dedup failure, got %d", got)
	}
}

// 反应写路径出错必须上抛，不能吞
func TestReactionPathErrorsPropagate(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)
	f.reactions.failCount = errors.New("connection reset")

	_, err := f.engine.React(target, 2, models.ReactionKindLike)
	if err == nil {
		t.Fatal("expected error from counter recompute path")
	}
}

// 文章和评论各自独立计数，同一个用户可以分别反应
func TestArticleAndCommentIndependent(t *testing.T) {
	f := newEngineFixture(t)
	article := f.addArticle(1, 10)
	comment := TargetRef{Kind: TargetComment, ID: 7}
	f.targets.targets[comment] = &TargetInfo{OwnerID: 11, Aid: "art00001", Title: "测试文章"}

	f.mustReact(t, article, 2, models.ReactionKindLike)
	result := f.mustReact(t, comment, 2, models.ReactionKindDislike)

	if result.LikeCount != 0 || result.DislikeCount != 1 {
		t.Errorf("comment counts wrong: %d/%d", result.LikeCount, result.DislikeCount)
	}
	storedLikes, _ := f.targets.stored(article)
	if storedLikes != 1 {
		t.Errorf("article like count disturbed: %d", storedLikes)
	}
}

// 并发双击：唯一约束兜底，最终计数与行数一致
func TestConcurrentToggleKeepsCountsTrue(t *testing.T) {
	f := newEngineFixture(t)
	target := f.addArticle(1, 10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		user := uint(2 + i%5)
		wg.Add(1)
		go func(u uint) {
			defer wg.Done()
			// 并发下单次调用的结果不作断言，只看终态
			_, _ = f.engine.React(target, u, models.ReactionKindLike)
		}(user)
	}
	wg.Wait()

	// 终态收敛：再做一次重算后，存储计数等于真实行数
	likes, dislikes, err := f.engine.Recompute(target)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	rowLikes, _ := f.reactions.CountByKind(target, models.ReactionKindLike)
	if likes != rowLikes || dislikes != 0 {
		t.Errorf("stored %d/%d, rows %d/0", likes, dislikes, rowLikes)
	}
}
