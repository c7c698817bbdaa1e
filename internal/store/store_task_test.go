package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestCreateCompany(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectQuery(`INSERT INTO companies \(name, sector\) VALUES \(\$1,\$2\) RETURNING id`).
		WithArgs("Acme", "Manufacturing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("co-1"))

	id, err := st.CreateCompany(context.Background(), "Acme", "Manufacturing")
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	if id != "co-1" {
		t.Fatalf("unexpected id %q", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateTaskValueNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectExec(`UPDATE tasks SET value=\$2, updated_at=NOW\(\) WHERE id=\$1`).
		WithArgs("missing", "some value").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = st.UpdateTaskValue(context.Background(), "missing", "some value")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTaskFiles(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "task_id", "file_path", "file_url", "created_at"}).
		AddRow("f1", "t1", "policies/ghg.pdf", "https://signed/ghg.pdf", now).
		AddRow("f2", "t1", "policies/water.pdf", "https://signed/water.pdf", now)
	mock.ExpectQuery(`SELECT id, task_id, file_path, file_url, created_at`).
		WithArgs("t1").
		WillReturnRows(rows)

	files, err := st.ListTaskFiles(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ListTaskFiles: %v", err)
	}
	if len(files) != 2 || files[0].FilePath != "policies/ghg.pdf" {
		t.Fatalf("unexpected files %+v", files)
	}
}

func TestAssignTask(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	mock.ExpectExec(`UPDATE tasks SET owner_id=\$2, updated_at=NOW\(\) WHERE id=\$1`).
		WithArgs("t1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.AssignTask(context.Background(), "t1", "u2"); err != nil {
		t.Fatalf("AssignTask: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
