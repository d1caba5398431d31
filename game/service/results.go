package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dmi-s/rongame/logger"
)

// GameResult is produced once per won game
type GameResult struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Game       string    `json:"game"`
	Moves      int       `json:"moves"`
	Time       int       `json:"time"` // seconds
	ChatID     int64     `json:"chat_id,omitempty"`
	ShareText  string    `json:"share_text"`
	FinishedAt time.Time `json:"finished_at"`
}

// Payload returns the {moves, time, game} object sent to chats and web views
func (r GameResult) Payload() map[string]interface{} {
	return map[string]interface{}{
		"moves": r.Moves,
		"time":  r.Time,
		"game":  r.Game,
	}
}

// ResultReporter receives finished games. Report is called from its own
// goroutine and may block.
type ResultReporter interface {
	Report(ctx context.Context, result GameResult) error
}

// ReporterFunc adapts a function to ResultReporter
type ReporterFunc func(ctx context.Context, result GameResult) error

// Report calls f
func (f ReporterFunc) Report(ctx context.Context, result GameResult) error {
	return f(ctx, result)
}

// LogReporter writes results to the application log
type LogReporter struct{}

// Report logs the result
func (LogReporter) Report(ctx context.Context, result GameResult) error {
	logger.Log.WithFields(logrus.Fields{
		"result_id": result.ID,
		"session":   result.SessionID,
		"game":      result.Game,
		"moves":     result.Moves,
		"seconds":   result.Time,
		"chat_id":   result.ChatID,
	}).Info("game won")
	return nil
}

// MultiReporter fans a result out to every reporter and joins their errors
type MultiReporter []ResultReporter

// Report calls every reporter even when an earlier one fails
func (m MultiReporter) Report(ctx context.Context, result GameResult) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newResultID() string {
	return uuid.NewString()
}
