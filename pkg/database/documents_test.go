package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/pkg/models"
	"github.com/askdocs/askdocs/pkg/observability"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewFromDB(sqlx.NewDb(db, "postgres"), observability.NewNoopLogger()), mock
}

func documentColumns() []string {
	return []string{"id", "content", "metadata", "created_at"}
}

func TestCreateDocument(t *testing.T) {
	d, mock := newMockDatabase(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs("The sky is blue.", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(documentColumns()).
			AddRow(int64(1), "The sky is blue.", []byte(`{"source": "test"}`), now))

	doc, err := d.CreateDocument(context.Background(), "The sky is blue.", models.Metadata{"source": "test"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), doc.ID)
	assert.Equal(t, "The sky is blue.", doc.Content)
	assert.Equal(t, "test", doc.Metadata["source"])
	assert.Equal(t, now, doc.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDocumentRejectsEmptyContent(t *testing.T) {
	d, _ := newMockDatabase(t)

	_, err := d.CreateDocument(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestGetDocument(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		d, mock := newMockDatabase(t)

		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(documentColumns()).
				AddRow(int64(5), "content", []byte(`{}`), time.Now()))

		doc, err := d.GetDocument(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), doc.ID)
	})

	t.Run("not found", func(t *testing.T) {
		d, mock := newMockDatabase(t)

		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(documentColumns()))

		_, err := d.GetDocument(context.Background(), 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListDocuments(t *testing.T) {
	d, mock := newMockDatabase(t)

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs(0, 100).
		WillReturnRows(sqlmock.NewRows(documentColumns()).
			AddRow(int64(1), "a", []byte(`{}`), time.Now()).
			AddRow(int64(2), "b", []byte(`{}`), time.Now()))

	docs, err := d.ListDocuments(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestListDocumentsCapsLimit(t *testing.T) {
	d, mock := newMockDatabase(t)

	mock.ExpectQuery("SELECT (.+) FROM documents").
		WithArgs(0, maxListLimit).
		WillReturnRows(sqlmock.NewRows(documentColumns()))

	_, err := d.ListDocuments(context.Background(), 0, 10000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentsByIDs(t *testing.T) {
	t.Run("preserves input order", func(t *testing.T) {
		d, mock := newMockDatabase(t)

		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(pq.Array([]int64{3, 1})).
			WillReturnRows(sqlmock.NewRows(documentColumns()).
				AddRow(int64(1), "first", []byte(`{}`), time.Now()).
				AddRow(int64(3), "third", []byte(`{}`), time.Now()))

		docs, err := d.GetDocumentsByIDs(context.Background(), []int64{3, 1})
		require.NoError(t, err)

		require.Len(t, docs, 2)
		assert.Equal(t, int64(3), docs[0].ID)
		assert.Equal(t, int64(1), docs[1].ID)
	})

	t.Run("empty input", func(t *testing.T) {
		d, _ := newMockDatabase(t)

		docs, err := d.GetDocumentsByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}
