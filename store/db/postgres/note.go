package postgres

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/quillnote/store"
)

const noteColumns = "id, owner_id, title, content, summary, tags, embedding, created_ts, updated_ts"

// toVector maps an empty embedding to NULL.
func toVector(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func (d *DB) CreateNotes(ctx context.Context, creates []*store.Note) ([]*store.Note, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	stmt := `INSERT INTO note (` + noteColumns + `) VALUES (` + placeholders(9) + `)`
	for _, create := range creates {
		if _, err := tx.ExecContext(ctx, stmt,
			create.ID,
			create.OwnerID,
			create.Title,
			create.Content,
			create.Summary,
			create.Tags,
			toVector(create.Embedding),
			create.CreatedTs,
			create.UpdatedTs,
		); err != nil {
			return nil, errors.Wrapf(err, "failed to create note %s", create.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit notes")
	}
	return creates, nil
}

func (d *DB) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = "+placeholder(len(args)+1)), append(args, *find.OwnerID)
	}
	if find.IDList != nil {
		if len(find.IDList) == 0 {
			where = append(where, "1 = 0")
		} else {
			where, args = append(where, "id = ANY("+placeholder(len(args)+1)+")"), append(args, pq.Array(find.IDList))
		}
	}
	if find.HasEmbedding {
		where = append(where, "embedding IS NOT NULL")
	}
	if find.MissingEmbedding {
		where = append(where, "embedding IS NULL")
	}
	if find.MissingTags {
		where = append(where, "tags = ''")
	}
	if v := find.After; v != nil {
		ts, id := placeholder(len(args)+1), placeholder(len(args)+2)
		where, args = append(where, "(created_ts > "+ts+" OR (created_ts = "+ts+" AND id > "+id+"))"), append(args, v.CreatedTs, v.ID)
	}

	query := `SELECT ` + noteColumns + ` FROM note WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts ASC, id ASC`
	if find.Limit != nil {
		query, args = query+" LIMIT "+placeholder(len(args)+1), append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notes")
	}
	defer rows.Close()

	list := make([]*store.Note, 0)
	for rows.Next() {
		var note store.Note
		var vector pgvector.Vector
		var hasVector bool
		if err := rows.Scan(
			&note.ID,
			&note.OwnerID,
			&note.Title,
			&note.Content,
			&note.Summary,
			&note.Tags,
			&nullVector{vector: &vector, valid: &hasVector},
			&note.CreatedTs,
			&note.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan note")
		}
		if hasVector {
			note.Embedding = vector.Slice()
		}
		list = append(list, &note)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate notes")
	}

	return list, nil
}

func (d *DB) UpdateNotes(ctx context.Context, updates []*store.UpdateNote) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	for _, update := range updates {
		set, args := []string{}, []any{}

		if update.Title != nil {
			set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *update.Title)
		}
		if update.Content != nil {
			set, args = append(set, "content = "+placeholder(len(args)+1)), append(args, *update.Content)
		}
		if update.Summary != nil {
			set, args = append(set, "summary = "+placeholder(len(args)+1)), append(args, *update.Summary)
		}
		if update.Tags != nil {
			set, args = append(set, "tags = "+placeholder(len(args)+1)), append(args, *update.Tags)
		}
		if update.Embedding != nil {
			set, args = append(set, "embedding = "+placeholder(len(args)+1)), append(args, toVector(*update.Embedding))
		}
		if update.UpdatedTs != nil {
			set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *update.UpdatedTs)
		}
		if len(set) == 0 {
			return errors.Errorf("no fields to update for note %s", update.ID)
		}

		args = append(args, update.ID)
		stmt := `UPDATE note SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
		result, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return errors.Wrapf(err, "failed to update note %s", update.ID)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return errors.Wrapf(store.ErrNoteNotFound, "update note %s", update.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit note updates")
	}
	return nil
}

func (d *DB) DeleteNote(ctx context.Context, delete *store.DeleteNote) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM note WHERE id = `+placeholder(1)+` AND owner_id = `+placeholder(2), delete.ID, delete.OwnerID)
	if err != nil {
		return errors.Wrap(err, "failed to delete note")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.Wrapf(store.ErrNoteNotFound, "delete note %s", delete.ID)
	}
	return nil
}

// nullVector scans a nullable vector column.
type nullVector struct {
	vector *pgvector.Vector
	valid  *bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		*n.valid = false
		return nil
	}
	*n.valid = true
	return n.vector.Scan(src)
}
