package core

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"taskmate/pkg/domain"
)

// DetectFileCategory maps a MIME type to a file category.
func DetectFileCategory(mime string) FileCategory {
	m := strings.ToLower(mime)
	switch {
	case strings.HasPrefix(m, "image/"):
		return domain.FileCategoryImage
	case strings.HasPrefix(m, "video/"):
		return domain.FileCategoryVideo
	case strings.Contains(m, "spreadsheet"), strings.Contains(m, "excel"):
		return domain.FileCategorySpreadsheet
	case strings.Contains(m, "presentation"), strings.Contains(m, "powerpoint"):
		return domain.FileCategoryPresentation
	case strings.Contains(m, "pdf"), strings.Contains(m, "document"), strings.Contains(m, "text"):
		return domain.FileCategoryDocument
	default:
		return domain.FileCategoryOther
	}
}

// MockFileURL is the placeholder reference stored for attachments.
func MockFileURL(name string) string {
	return "mock://file/" + name
}

// AddFile records attachment metadata. Category is detected from the MIME
// type and status starts as draft when unset. The assignee of the linked
// task is notified unless they uploaded it.
func (s *Service) AddFile(ctx context.Context, file FileAttachment) (FileAttachment, Result, error) {
	var created FileAttachment
	res, err := s.run(ctx, "add_file", func(tx Transaction) (string, error) {
		if file.Category == "" {
			file.Category = DetectFileCategory(file.Type)
		}
		if file.Status == "" {
			file.Status = domain.FileStatusDraft
		}
		if file.URL == "" {
			file.URL = MockFileURL(file.Name)
		}
		if err := validateFile(file); err != nil {
			return "", err
		}
		var task Task
		if file.TaskID != "" {
			var ok bool
			task, ok = tx.FindTask(file.TaskID)
			if !ok {
				return "", ErrNotFound{Entity: EntityTask, ID: file.TaskID}
			}
			if file.ProjectID == "" {
				file.ProjectID = task.ProjectID
			}
			if file.TeamID == "" {
				file.TeamID = task.TeamID
			}
		}
		var err error
		created, err = tx.CreateFile(file)
		if err != nil {
			return "", err
		}
		if task.AssigneeID != "" && task.AssigneeID != created.UploadedBy {
			if _, err := tx.CreateNotification(Notification{
				UserID:    task.AssigneeID,
				Type:      domain.NotificationFileUploaded,
				Title:     "File uploaded",
				Message:   fmt.Sprintf("%s uploaded %s to %q", created.UploadedByName, created.Name, task.Title),
				RelatedID: created.ID,
			}); err != nil {
				return created.ID, err
			}
		}
		return created.ID, nil
	})
	return created, res, err
}

// UpdateFile mutates attachment metadata.
func (s *Service) UpdateFile(ctx context.Context, id string, mutator func(*FileAttachment) error) (FileAttachment, Result, error) {
	var updated FileAttachment
	res, err := s.run(ctx, "update_file", func(tx Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateFile(id, func(f *FileAttachment) error {
			if err := mutator(f); err != nil {
				return err
			}
			return validateFile(*f)
		})
		return id, err
	})
	return updated, res, err
}

// SetFileStatus moves a file through its review states.
func (s *Service) SetFileStatus(ctx context.Context, id string, status FileStatus) (FileAttachment, Result, error) {
	return s.UpdateFile(ctx, id, func(f *FileAttachment) error {
		f.Status = status
		return nil
	})
}

// DeleteFile removes attachment metadata and its review comments.
func (s *Service) DeleteFile(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_file", func(tx Transaction) (string, error) {
		return id, tx.DeleteFile(id)
	})
}

// AddFileComment appends a review comment to a file.
func (s *Service) AddFileComment(ctx context.Context, comment FileComment) (FileComment, Result, error) {
	var created FileComment
	res, err := s.run(ctx, "add_file_comment", func(tx Transaction) (string, error) {
		if err := required("message", comment.Message); err != nil {
			return "", err
		}
		if _, ok := tx.FindFile(comment.FileID); !ok {
			return "", ErrNotFound{Entity: EntityFile, ID: comment.FileID}
		}
		var err error
		created, err = tx.CreateFileComment(comment)
		return created.ID, err
	})
	return created, res, err
}

// DeleteFileComment removes a file review comment.
func (s *Service) DeleteFileComment(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_file_comment", func(tx Transaction) (string, error) {
		return id, tx.DeleteFileComment(id)
	})
}

// FileFilter narrows SearchFiles. Empty fields match everything.
type FileFilter struct {
	Query    string
	Category FileCategory
	Tag      string
}

// SearchFiles returns files matching filter, newest upload first. Query
// matches name, description and tags case-insensitively.
func SearchFiles(files []FileAttachment, filter FileFilter) []FileAttachment {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]FileAttachment, 0, len(files))
	for _, f := range files {
		if filter.Category != "" && f.Category != filter.Category {
			continue
		}
		if filter.Tag != "" && !f.HasTag(filter.Tag) {
			continue
		}
		if query != "" && !fileMatches(f, query) {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out
}

func fileMatches(f FileAttachment, query string) bool {
	if strings.Contains(strings.ToLower(f.Name), query) || strings.Contains(strings.ToLower(f.Description), query) {
		return true
	}
	return slices.ContainsFunc(f.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), query)
	})
}

// FileTags returns the distinct tags across files, sorted.
func FileTags(files []FileAttachment) []string {
	seen := map[string]struct{}{}
	for _, f := range files {
		for _, tag := range f.Tags {
			seen[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
