package persistent

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uzzapchat/uzzap/pgdb"
)

// PgOpenTest connects to the database started by testenv; tests using it
// must skip under -short.
func PgOpenTest(ctx context.Context) *bun.DB {
	return pgdb.OpenTest(ctx)
}
