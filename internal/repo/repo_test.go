package repo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"campus-notice/internal/domain"
	"campus-notice/internal/testutil"
)

func seedUser(t *testing.T, r *UserRepo, roll, email, name string) *domain.User {
	t.Helper()
	u := &domain.User{RollNumber: roll, Email: email, Username: name, PasswordHash: "x"}
	if err := r.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", roll, err)
	}
	return u
}

func TestUserRepoCreateDuplicate(t *testing.T) {
	users := NewUserRepo(testutil.NewDB(t))
	seedUser(t, users, "S100", "s100@campus.edu", "Ravi")
	err := users.Create(context.Background(), &domain.User{RollNumber: "S101", Email: "s100@campus.edu", Username: "x", PasswordHash: "x"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}
	err = users.Create(context.Background(), &domain.User{RollNumber: "S100", Email: "other@campus.edu", Username: "x", PasswordHash: "x"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate roll number, got %v", err)
	}
}

func TestUserRepoApproveOnlyOnce(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(testutil.NewDB(t))
	u := seedUser(t, users, "S100", "s100@campus.edu", "Ravi")
	u.Reason = "new student"

	ok, err := users.Approve(ctx, u.ID, "admin-1")
	if err != nil || !ok {
		t.Fatalf("first approve: ok=%v err=%v", ok, err)
	}
	ok, err = users.Approve(ctx, u.ID, "admin-2")
	if err != nil || ok {
		t.Fatalf("second approve must not apply: ok=%v err=%v", ok, err)
	}
	got, _ := users.FindByRollNumber(ctx, "S100")
	if !got.Verified || got.VerifiedBy != "admin-1" || got.Reason != "" {
		t.Fatalf("unexpected user after approve %+v", got)
	}
}

func TestUserRepoPendingAndVerifiedLists(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepo(testutil.NewDB(t))
	a := seedUser(t, users, "S1", "s1@campus.edu", "A")
	b := seedUser(t, users, "S2", "s2@campus.edu", "B")
	seedUser(t, users, "S3", "s3@campus.edu", "C")
	_ = users.MarkEmailVerified(ctx, a.ID)
	_ = users.MarkEmailVerified(ctx, b.ID)
	_, _ = users.Approve(ctx, b.ID, "admin-1")

	pending, err := users.ListPending(ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("unexpected pending %+v err=%v", pending, err)
	}
	verified, err := users.ListVerified(ctx, 0, 10)
	if err != nil || len(verified) != 1 || verified[0].ID != b.ID {
		t.Fatalf("unexpected verified %+v err=%v", verified, err)
	}
}

func TestSearchIsCaseInsensitiveAndEscaped(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	users := NewUserRepo(db)
	admins := NewAdminRepo(db)
	me := seedUser(t, users, "S1", "ravi@campus.edu", "Ravi Kumar")
	seedUser(t, users, "S2", "ravina@campus.edu", "Ravina")
	seedUser(t, users, "S3", "x@campus.edu", "100%_sure")
	if err := admins.Create(ctx, &domain.Admin{RollNumber: "A1", Email: "warden@campus.edu", AdminName: "RAVI Warden", PasswordHash: "x", PhoneNumber: "1"}); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	got, err := users.Search(ctx, "RAV", me.ID, 50)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Username != "Ravina" {
		t.Fatalf("expected only Ravina (self excluded), got %+v", got)
	}
	got, _ = users.Search(ctx, "%_", "", 50)
	if len(got) != 1 || got[0].RollNumber != "S3" {
		t.Fatalf("wildcards must match literally, got %+v", got)
	}
	ads, err := admins.Search(ctx, "ravi", "", 50)
	if err != nil || len(ads) != 1 {
		t.Fatalf("admin search: %+v err=%v", ads, err)
	}
}

func TestCreateQueryConcurrentNumbering(t *testing.T) {
	ctx := context.Background()
	threads := NewThreadRepo(testutil.NewDB(t))

	const n = 20
	var wg sync.WaitGroup
	nums := make(chan int64, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := &domain.Query{AuthorUserID: "u1", Title: "t", Body: "b"}
			if err := threads.CreateQuery(ctx, q); err != nil {
				errs <- err
				return
			}
			nums <- q.Number
		}()
	}
	wg.Wait()
	close(nums)
	close(errs)
	for err := range errs {
		t.Fatalf("create query: %v", err)
	}
	var got []int64
	for v := range nums {
		got = append(got, v)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != n {
		t.Fatalf("expected %d numbers, got %d", n, len(got))
	}
	for i, v := range got {
		if v != int64(i+1) {
			t.Fatalf("numbers must be distinct and gapless here, got %v", got)
		}
	}
}

func TestToggleVoteParity(t *testing.T) {
	ctx := context.Background()
	threads := NewThreadRepo(testutil.NewDB(t))
	q := &domain.Query{AuthorUserID: "u1", Title: "Wifi down", Body: "hostel B"}
	if err := threads.CreateQuery(ctx, q); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 1; i <= 4; i++ {
		got, err := threads.ToggleVote(ctx, q.ID, "u2")
		if err != nil {
			t.Fatalf("vote #%d: %v", i, err)
		}
		want := i % 2
		if got.VoteCount != want || len(got.VotedBy) != want {
			t.Fatalf("after %d votes: count=%d votedBy=%v", i, got.VoteCount, got.VotedBy)
		}
	}

	if _, err := threads.ToggleVote(ctx, "missing", "u2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestToggleVoteConcurrentVoters(t *testing.T) {
	ctx := context.Background()
	threads := NewThreadRepo(testutil.NewDB(t))
	q := &domain.Query{AuthorUserID: "u1", Title: "t", Body: "b"}
	_ = threads.CreateQuery(ctx, q)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := threads.ToggleVote(ctx, q.ID, string(rune('a'+i))); err != nil {
				t.Errorf("vote: %v", err)
			}
		}(i)
	}
	wg.Wait()
	got, _ := threads.FindQuery(ctx, q.ID)
	if got.VoteCount != 10 || len(got.VotedBy) != 10 {
		t.Fatalf("expected 10 votes, got count=%d votedBy=%d", got.VoteCount, len(got.VotedBy))
	}
}

func TestToggleResolutionInvariant(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	threads := NewThreadRepo(db)
	admins := NewAdminRepo(db)
	q := &domain.Query{AuthorUserID: "u1", Title: "t", Body: "b"}
	_ = threads.CreateQuery(ctx, q)

	for i := 1; i <= 5; i++ {
		res, err := threads.ToggleResolution(ctx, q.ID, "admin-1", "fixed")
		if err != nil {
			t.Fatalf("toggle #%d: %v", i, err)
		}
		resolved := i%2 == 1
		if res.Query.IsResolved != resolved || (res.Query.ResponseID != "") != resolved {
			t.Fatalf("toggle #%d broke invariant: %+v", i, res.Query)
		}
		if resolved && (res.Response == nil || res.Response.Text != "fixed") {
			t.Fatalf("toggle #%d: expected created response", i)
		}
		if !resolved && res.Removed == nil {
			t.Fatalf("toggle #%d: expected removed response", i)
		}
		ids, _ := admins.ResponseIDs(ctx, "admin-1")
		if resolved != (len(ids) == 1) {
			t.Fatalf("toggle #%d: admin response ids %v", i, ids)
		}
	}

	if _, err := threads.ToggleResolution(ctx, "missing", "admin-1", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := threads.ToggleResolution(ctx, q.ID, "admin-1", "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty response, got %v", err)
	}
}

func TestToggleResolutionConcurrentAdmins(t *testing.T) {
	ctx := context.Background()
	threads := NewThreadRepo(testutil.NewDB(t))
	q := &domain.Query{AuthorUserID: "u1", Title: "t", Body: "b"}
	_ = threads.CreateQuery(ctx, q)

	var wg sync.WaitGroup
	for _, admin := range []string{"admin-1", "admin-2"} {
		wg.Add(1)
		go func(admin string) {
			defer wg.Done()
			_, _ = threads.ToggleResolution(ctx, q.ID, admin, "answer from "+admin)
		}(admin)
	}
	wg.Wait()

	got, _ := threads.FindQuery(ctx, q.ID)
	if got.IsResolved != (got.ResponseID != "") {
		t.Fatalf("invariant broken: %+v", got)
	}
	if got.IsResolved {
		resp, _ := threads.FindResponses(ctx, []string{got.ResponseID})
		if len(resp) != 1 {
			t.Fatalf("expected exactly one linked response, got %v", resp)
		}
	}
}

func TestCommentsOrderAndDelete(t *testing.T) {
	ctx := context.Background()
	threads := NewThreadRepo(testutil.NewDB(t))
	q := &domain.Query{AuthorUserID: "u1", Title: "t", Body: "b"}
	_ = threads.CreateQuery(ctx, q)

	authors := []domain.Author{domain.UserAuthor("u1"), domain.AdminAuthor("a1"), domain.UserAuthor("u2")}
	var ids []string
	for i, a := range authors {
		c := &domain.Comment{QueryID: q.ID, Text: string(rune('x' + i)), Author: a}
		if err := threads.AddComment(ctx, c); err != nil {
			t.Fatalf("add comment: %v", err)
		}
		ids = append(ids, c.ID)
	}
	got, _ := threads.FindQuery(ctx, q.ID)
	if len(got.CommentIDs) != 3 || got.CommentIDs[0] != ids[0] || got.CommentIDs[2] != ids[2] {
		t.Fatalf("comment ids out of order: %v vs %v", got.CommentIDs, ids)
	}

	c, _ := threads.FindComment(ctx, ids[1])
	if c == nil || c.Author != domain.AdminAuthor("a1") {
		t.Fatalf("unexpected comment %+v", c)
	}
	if err := threads.DeleteComment(ctx, c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	cs, _ := threads.Comments(ctx, q.ID)
	if len(cs) != 2 {
		t.Fatalf("expected 2 comments left, got %d", len(cs))
	}

	err := threads.AddComment(ctx, &domain.Comment{QueryID: "missing", Text: "x", Author: domain.UserAuthor("u1")})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	err = threads.AddComment(ctx, &domain.Comment{QueryID: q.ID, Text: "x"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error without author, got %v", err)
	}
}

func TestListQueriesSort(t *testing.T) {
	ctx := context.Background()
	threads := NewThreadRepo(testutil.NewDB(t))
	var qs []*domain.Query
	for i := 0; i < 3; i++ {
		q := &domain.Query{AuthorUserID: "u1", Title: "t", Body: "b"}
		_ = threads.CreateQuery(ctx, q)
		qs = append(qs, q)
	}
	_, _ = threads.ToggleVote(ctx, qs[0].ID, "u2")
	_, _ = threads.ToggleVote(ctx, qs[0].ID, "u3")
	_, _ = threads.ToggleVote(ctx, qs[1].ID, "u2")

	byVotes, err := threads.ListQueries(ctx, domain.SortVotes, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if byVotes[0].ID != qs[0].ID || byVotes[1].ID != qs[1].ID || byVotes[0].VoteCount != 2 {
		t.Fatalf("unexpected vote order %+v", byVotes)
	}
	recent, _ := threads.ListQueries(ctx, domain.SortRecency, 0, 2)
	if len(recent) != 2 || recent[0].Number < recent[1].Number {
		t.Fatalf("unexpected recency page %+v", recent)
	}
}
