package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus-notice/internal/domain"
	"campus-notice/internal/feature/thread"
	"campus-notice/pkg/utils"
)

type ThreadRepo struct{ db *gorm.DB }

func NewThreadRepo(db *gorm.DB) *ThreadRepo { return &ThreadRepo{db: db} }

var _ domain.ThreadRepository = (*ThreadRepo)(nil)

// nextSeq 原子自增并读回；UPDATE 会持有计数行的行锁直到事务结束
func nextSeq(tx *gorm.DB, name string) (int64, error) {
	res := tx.Model(&thread.CounterModel{}).Where("name = ?", name).
		UpdateColumn("seq", gorm.Expr("seq + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		// 计数行缺失（未跑迁移种子）时补上
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{"seq": gorm.Expr("counters.seq + 1")}),
		}).Create(&thread.CounterModel{Name: name, Seq: 1}).Error
		if err != nil {
			return 0, err
		}
	}
	var c thread.CounterModel
	if err := tx.Where("name = ?", name).First(&c).Error; err != nil {
		return 0, err
	}
	return c.Seq, nil
}

func (r *ThreadRepo) CreateQuery(ctx context.Context, q *domain.Query) error {
	m := thread.QueryModel{
		ID:           utils.NewID(),
		AuthorUserID: q.AuthorUserID,
		Title:        q.Title,
		Body:         q.Body,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := nextSeq(tx, thread.CounterQueryNumber)
		if err != nil {
			return err
		}
		m.QueryNumber = n
		return tx.Create(&m).Error
	})
	if err != nil {
		return wrap("create query", err)
	}
	*q = *m.ToDomain()
	q.VotedBy, q.CommentIDs = []string{}, []string{}
	return nil
}

func (r *ThreadRepo) FindQuery(ctx context.Context, id string) (*domain.Query, error) {
	q, err := loadQuery(r.db.WithContext(ctx), id)
	return q, wrap("find query", err)
}

func (r *ThreadRepo) ListQueries(ctx context.Context, sort domain.QuerySort, offset, limit int) ([]domain.Query, error) {
	order := "created_at DESC, query_number DESC"
	if sort == domain.SortVotes {
		order = "vote_count DESC, created_at DESC, query_number DESC"
	}
	db := r.db.WithContext(ctx)
	var ms []thread.QueryModel
	if err := db.Order(order).Offset(offset).Limit(limit).Find(&ms).Error; err != nil {
		return nil, wrap("list queries", err)
	}
	qs := make([]*domain.Query, 0, len(ms))
	for i := range ms {
		qs = append(qs, ms[i].ToDomain())
	}
	if err := attachLists(db, qs); err != nil {
		return nil, wrap("list queries", err)
	}
	out := make([]domain.Query, 0, len(qs))
	for _, q := range qs {
		out = append(out, *q)
	}
	return out, nil
}

// lockQuery 通过一次无害的 UPDATE 占住查询行（pg/mysql 行锁，sqlite 本身串行写）
func lockQuery(tx *gorm.DB, id string) (*thread.QueryModel, error) {
	if err := tx.Model(&thread.QueryModel{}).Where("id = ?", id).
		UpdateColumn("updated_at", time.Now()).Error; err != nil {
		return nil, err
	}
	var m thread.QueryModel
	err := tx.Where("id = ?", id).First(&m).Error
	if notFound(err) {
		return nil, domain.NotFound("query not found")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ThreadRepo) ToggleVote(ctx context.Context, queryID, userID string) (*domain.Query, error) {
	var out *domain.Query
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockQuery(tx, queryID); err != nil {
			return err
		}
		del := tx.Where("query_id = ? AND user_id = ?", queryID, userID).Delete(&thread.VoteModel{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&thread.VoteModel{QueryID: queryID, UserID: userID}).Error
			if err != nil {
				return err
			}
		}
		// vote_count 始终由投票表重算，保证 voteCount == |votedBy|
		err := tx.Model(&thread.QueryModel{}).Where("id = ?", queryID).
			UpdateColumn("vote_count", gorm.Expr("(SELECT COUNT(*) FROM query_votes WHERE query_votes.query_id = ?)", queryID)).Error
		if err != nil {
			return err
		}
		out, err = loadQuery(tx, queryID)
		return err
	})
	if err != nil {
		return nil, wrap("toggle vote", err)
	}
	return out, nil
}

func (r *ThreadRepo) ToggleResolution(ctx context.Context, queryID, adminID, text string) (*domain.ResolutionResult, error) {
	var out domain.ResolutionResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m thread.QueryModel
		err := tx.Where("id = ?", queryID).First(&m).Error
		if notFound(err) {
			return domain.NotFound("query not found")
		}
		if err != nil {
			return err
		}

		if m.ResponseID == nil {
			if strings.TrimSpace(text) == "" {
				return domain.Validation("response text is required")
			}
			resp := thread.ResponseModel{ID: utils.NewID(), AdminID: adminID, QueryID: queryID, Text: text}
			// 条件更新：只有仍未解决时才能挂上回复，并发的另一位管理员会拿到 0 行
			res := tx.Model(&thread.QueryModel{}).Where("id = ? AND response_id IS NULL", queryID).
				Updates(map[string]any{"is_resolved": true, "response_id": resp.ID})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.Conflict("query was resolved by another admin", nil)
			}
			if err := tx.Create(&resp).Error; err != nil {
				if isDupKey(err) {
					return domain.Conflict("query was resolved by another admin", nil)
				}
				return err
			}
			out.Response = resp.ToDomain()
		} else {
			cur := *m.ResponseID
			res := tx.Model(&thread.QueryModel{}).Where("id = ? AND response_id = ?", queryID, cur).
				Updates(map[string]any{"is_resolved": false, "response_id": nil})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.Conflict("query resolution changed concurrently", nil)
			}
			var old thread.ResponseModel
			err := tx.Where("id = ?", cur).First(&old).Error
			switch {
			case err == nil:
				out.Removed = old.ToDomain()
			case !notFound(err):
				return err
			}
			if err := tx.Where("id = ?", cur).Delete(&thread.ResponseModel{}).Error; err != nil {
				return err
			}
		}
		out.Query, err = loadQuery(tx, queryID)
		return err
	})
	if err != nil {
		return nil, wrap("toggle resolution", err)
	}
	return &out, nil
}

func (r *ThreadRepo) FindResponses(ctx context.Context, ids []string) (map[string]*domain.QueryResponse, error) {
	out := make(map[string]*domain.QueryResponse, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var ms []thread.ResponseModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, wrap("find responses", err)
	}
	for i := range ms {
		out[ms[i].ID] = ms[i].ToDomain()
	}
	return out, nil
}

func (r *ThreadRepo) AddComment(ctx context.Context, c *domain.Comment) error {
	if !c.Author.Valid() {
		return domain.Validation("comment needs exactly one author")
	}
	db := r.db.WithContext(ctx)
	var n int64
	if err := db.Model(&thread.QueryModel{}).Where("id = ?", c.QueryID).Count(&n).Error; err != nil {
		return wrap("add comment", err)
	}
	if n == 0 {
		return domain.NotFound("query not found")
	}
	m := thread.CommentModel{
		ID:         utils.NewID(),
		QueryID:    c.QueryID,
		AuthorKind: string(c.Author.Kind),
		AuthorID:   c.Author.ID,
		Text:       c.Text,
	}
	if err := db.Create(&m).Error; err != nil {
		return wrap("add comment", err)
	}
	c.ID, c.CreatedAt = m.ID, m.CreatedAt
	return nil
}

func (r *ThreadRepo) FindComment(ctx context.Context, id string) (*domain.Comment, error) {
	var m thread.CommentModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find comment", err)
	}
	return m.ToDomain(), nil
}

func (r *ThreadRepo) DeleteComment(ctx context.Context, c *domain.Comment) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND author_kind = ? AND author_id = ?", c.ID, string(c.Author.Kind), c.Author.ID).
		Delete(&thread.CommentModel{})
	if res.Error != nil {
		return wrap("delete comment", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("comment not found")
	}
	return nil
}

func (r *ThreadRepo) Comments(ctx context.Context, queryID string) ([]domain.Comment, error) {
	var ms []thread.CommentModel
	err := r.db.WithContext(ctx).Where("query_id = ?", queryID).
		Order("created_at ASC, id ASC").Find(&ms).Error
	if err != nil {
		return nil, wrap("list comments", err)
	}
	out := make([]domain.Comment, 0, len(ms))
	for i := range ms {
		out = append(out, *ms[i].ToDomain())
	}
	return out, nil
}

func loadQuery(db *gorm.DB, id string) (*domain.Query, error) {
	var m thread.QueryModel
	err := db.Where("id = ?", id).First(&m).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q := m.ToDomain()
	if err := attachLists(db, []*domain.Query{q}); err != nil {
		return nil, err
	}
	return q, nil
}

// attachLists 批量填充 votedBy 与 commentIds，避免 N+1
func attachLists(db *gorm.DB, qs []*domain.Query) error {
	if len(qs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(qs))
	byID := make(map[string]*domain.Query, len(qs))
	for _, q := range qs {
		q.VotedBy, q.CommentIDs = []string{}, []string{}
		ids = append(ids, q.ID)
		byID[q.ID] = q
	}

	var votes []thread.VoteModel
	if err := db.Where("query_id IN ?", ids).Order("created_at ASC, user_id ASC").Find(&votes).Error; err != nil {
		return err
	}
	for _, v := range votes {
		byID[v.QueryID].VotedBy = append(byID[v.QueryID].VotedBy, v.UserID)
	}

	var refs []struct {
		ID      string
		QueryID string
	}
	if err := db.Model(&thread.CommentModel{}).Select("id", "query_id").Where("query_id IN ?", ids).
		Order("created_at ASC, id ASC").Scan(&refs).Error; err != nil {
		return err
	}
	for _, c := range refs {
		byID[c.QueryID].CommentIDs = append(byID[c.QueryID].CommentIDs, c.ID)
	}
	return nil
}
