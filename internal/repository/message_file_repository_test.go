package repository

import (
	"context"
	"testing"

	"gopherai-rag/internal/model"
)

func TestMessageFileRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	messages := NewMessageRepository(db)
	files := NewMessageFileRepository(db)

	msg := &model.Message{SessionID: 1, UserID: 7, Role: model.RoleUser, Content: "see attached"}
	if err := messages.Create(ctx, msg); err != nil {
		t.Fatalf("Create message: %v", err)
	}
	got, err := messages.GetByID(ctx, msg.ID)
	if err != nil || got == nil || got.Content != "see attached" {
		t.Fatalf("GetByID: %+v, %v", got, err)
	}
	if missing, err := messages.GetByID(ctx, msg.ID+100); err != nil || missing != nil {
		t.Fatalf("expected nil for a missing message, got %+v, %v", missing, err)
	}

	for _, name := range []string{"a.pdf", "b.pdf"} {
		f := &model.MessageFile{MessageID: msg.ID, SessionID: 1, FileURL: "https://x.example/" + name, FileName: name}
		if err := files.Create(ctx, f); err != nil {
			t.Fatalf("Create file: %v", err)
		}
	}
	other := &model.MessageFile{MessageID: 99, SessionID: 2, FileURL: "https://x.example/c.pdf", FileName: "c.pdf"}
	if err := files.Create(ctx, other); err != nil {
		t.Fatalf("Create file: %v", err)
	}

	listed, err := files.ListByMessageIDs(ctx, []uint{msg.ID})
	if err != nil {
		t.Fatalf("ListByMessageIDs: %v", err)
	}
	if len(listed) != 2 || listed[0].FileName != "b.pdf" || listed[0].UploadedAt.IsZero() {
		t.Fatalf("expected newest first with upload time, got %+v", listed)
	}
	if empty, err := files.ListByMessageIDs(ctx, nil); err != nil || len(empty) != 0 {
		t.Fatalf("expected no files for no ids, got %+v, %v", empty, err)
	}

	if err := files.Delete(ctx, listed[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gone, err := files.GetByID(ctx, listed[0].ID); err != nil || gone != nil {
		t.Fatalf("expected deleted file to be gone, got %+v, %v", gone, err)
	}

	if err := files.DeleteBySessionID(ctx, 1); err != nil {
		t.Fatalf("DeleteBySessionID: %v", err)
	}
	left, _ := files.ListByMessageIDs(ctx, []uint{msg.ID, 99})
	if len(left) != 1 || left[0].ID != other.ID {
		t.Fatalf("only the other session's file should remain, got %+v", left)
	}
}
