package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/teamboard/internal/dbx"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/boards"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/invites"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/twofactor"
	"github.com/dmitrijs2005/teamboard/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same constructors on *sql.DB and inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	TwoFactor(db dbx.DBTX) twofactor.Repository
	Boards(db dbx.DBTX) boards.Repository
	Invites(db dbx.DBTX) invites.Repository
}
