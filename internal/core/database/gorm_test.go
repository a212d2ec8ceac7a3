package database

import (
	"strings"
	"testing"

	"campus-notice/internal/feature/thread"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	got := normalizeMySQLDSN("jdbc:mysql://root:pw@db:3306/notice?useSSL=false&serverTimezone=UTC", "", "override")
	if !strings.HasPrefix(got, "root:override@tcp(db:3306)/notice?") {
		t.Fatalf("unexpected dsn %q", got)
	}
	for _, want := range []string{"tls=false", "loc=UTC", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(got, want) {
			t.Fatalf("dsn %q missing %q", got, want)
		}
	}
	native := "u:p@tcp(localhost:3306)/db"
	if normalizeMySQLDSN(native, "x", "y") != native {
		t.Fatalf("native dsn should be left untouched")
	}
}

func TestMaskDSN(t *testing.T) {
	if got := maskDSN("root:secret@tcp(db)/x"); got != "root:****@tcp(db)/x" {
		t.Fatalf("unexpected mask %q", got)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := NewGorm(Opts{Driver: "oracle"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestMigrateSeedsCounterOnce(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := Migrate(db); err != nil {
			t.Fatalf("migrate #%d: %v", i, err)
		}
	}
	var rows []thread.CounterModel
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("list counters: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != thread.CounterQueryNumber || rows[0].Seq != 0 {
		t.Fatalf("unexpected counters %+v", rows)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	db, err := NewGorm(Opts{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	err = db.Create(&thread.CounterModel{Name: thread.CounterQueryNumber}).Error
	if !IsDuplicateKey(err) {
		t.Fatalf("expected duplicate key, got %v", err)
	}
	if IsDuplicateKey(nil) {
		t.Fatalf("nil is not a duplicate")
	}
}
