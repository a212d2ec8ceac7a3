package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"campus-notice/internal/core/database"
	"campus-notice/internal/domain"
)

// wrap 把存储层错误统一成 domain 错误；已是 domain.Error 的原样返回
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Unavailable(op, err)
}

func notFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

func isDupKey(err error) bool { return database.IsDuplicateKey(err) }

// likePattern 返回小写的 %term% 模式，通配符用 '!' 转义（配合 ESCAPE '!'；
// mysql 字符串里反斜杠本身要转义，各方言不一致）
func likePattern(term string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}
