package db

import (
	"fmt"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func testDialector() gorm.Dialector {
	name := fmt.Sprintf("file:bookingrelay_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	return sqlite.Open(name)
}
