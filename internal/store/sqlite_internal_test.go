package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLSession_ExecuteFailureRollsBackOnClose(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mk.ExpectBegin()
	mk.ExpectExec(regexp.QuoteMeta("CREATE INDEX Person.name")).WillReturnError(errors.New("near \".\": syntax error"))
	mk.ExpectRollback()

	s := &sqlSession{db: db}
	err = s.Execute(context.Background(), "CREATE INDEX Person.name ON Person (name)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	require.NoError(t, s.Close())
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestSQLSession_CommitWithoutPendingIsNoop(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &sqlSession{db: db}
	require.NoError(t, s.Commit(context.Background()))
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestSQLSession_ExecuteThenCommit(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mk.ExpectBegin()
	mk.ExpectExec(regexp.QuoteMeta("CREATE INDEX a ON T (x)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectExec(regexp.QuoteMeta("CREATE INDEX b ON T (y)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mk.ExpectCommit()

	s := &sqlSession{db: db}
	ctx := context.Background()
	require.NoError(t, s.Execute(ctx, "CREATE INDEX a ON T (x)"))
	require.NoError(t, s.Execute(ctx, "CREATE INDEX b ON T (y)"))
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Close())
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestSQLSchema_ExistsClassError(t *testing.T) {
	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mk.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM gs_classes")).WillReturnError(errors.New("disk I/O error"))

	sc := &sqlSchema{s: &sqlSession{db: db}}
	_, err = sc.ExistsClass(context.Background(), "Person")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checking class Person")
	assert.NoError(t, mk.ExpectationsWereMet())
}

func TestSQLiteAffinity(t *testing.T) {
	assert.Equal(t, "INTEGER", sqliteAffinity(TypeLong))
	assert.Equal(t, "REAL", sqliteAffinity(TypeDouble))
	assert.Equal(t, "BLOB", sqliteAffinity(TypeBinary))
	assert.Equal(t, "TEXT", sqliteAffinity(TypeEmbeddedMap))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}
