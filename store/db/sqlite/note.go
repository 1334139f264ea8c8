package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/quillnote/store"
)

const noteColumns = "id, owner_id, title, content, summary, tags, embedding, created_ts, updated_ts"

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
			encodeEmbedding(create.Embedding),
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

	if v := find.ID; v != nil {
		where, args = append(where, "`id` = ?"), append(args, *v)
	}
	if v := find.OwnerID; v != nil {
		where, args = append(where, "`owner_id` = ?"), append(args, *v)
	}
	if v := find.IDList; v != nil {
		if len(v) == 0 {
			where = append(where, "1 = 0")
		} else {
			where = append(where, "`id` IN ("+placeholders(len(v))+")")
			for _, id := range v {
				args = append(args, id)
			}
		}
	}
	if find.HasEmbedding {
		where = append(where, "`embedding` IS NOT NULL")
	}
	if find.MissingEmbedding {
		where = append(where, "`embedding` IS NULL")
	}
	if find.MissingTags {
		where = append(where, "`tags` = ''")
	}
	if v := find.After; v != nil {
		where = append(where, "(`created_ts` > ? OR (`created_ts` = ? AND `id` > ?))")
		args = append(args, v.CreatedTs, v.CreatedTs, v.ID)
	}

	query := "SELECT " + noteColumns + " FROM `note` WHERE " + strings.Join(where, " AND ") + " ORDER BY `created_ts` ASC, `id` ASC"
	if find.Limit != nil {
		query, args = query+" LIMIT ?", append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notes")
	}
	defer rows.Close()

	list := make([]*store.Note, 0)
	for rows.Next() {
		var note store.Note
		var blob []byte
		if err := rows.Scan(
			&note.ID,
			&note.OwnerID,
			&note.Title,
			&note.Content,
			&note.Summary,
			&note.Tags,
			&blob,
			&note.CreatedTs,
			&note.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan note")
		}
		if note.Embedding, err = decodeEmbedding(blob); err != nil {
			return nil, errors.Wrapf(err, "note %s", note.ID)
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

		if v := update.Title; v != nil {
			set, args = append(set, "`title` = ?"), append(args, *v)
		}
		if v := update.Content; v != nil {
			set, args = append(set, "`content` = ?"), append(args, *v)
		}
		if v := update.Summary; v != nil {
			set, args = append(set, "`summary` = ?"), append(args, *v)
		}
		if v := update.Tags; v != nil {
			set, args = append(set, "`tags` = ?"), append(args, *v)
		}
		if v := update.Embedding; v != nil {
			set, args = append(set, "`embedding` = ?"), append(args, encodeEmbedding(*v))
		}
		if v := update.UpdatedTs; v != nil {
			set, args = append(set, "`updated_ts` = ?"), append(args, *v)
		}
		if len(set) == 0 {
			return errors.Errorf("no fields to update for note %s", update.ID)
		}

		args = append(args, update.ID)
		stmt := "UPDATE `note` SET " + strings.Join(set, ", ") + " WHERE `id` = ?"
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
	result, err := d.db.ExecContext(ctx, "DELETE FROM `note` WHERE `id` = ? AND `owner_id` = ?", delete.ID, delete.OwnerID)
	if err != nil {
		return errors.Wrap(err, "failed to delete note")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return errors.Wrapf(store.ErrNoteNotFound, "delete note %s", delete.ID)
	}
	return nil
}
