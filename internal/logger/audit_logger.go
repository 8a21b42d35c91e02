package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogJobStateChange logs a job status transition.
func (al *AuditLogger) LogJobStateChange(jobID, userID, oldState, newState string, timestamp time.Time) {
	al.WithFields(logrus.Fields{
		"job_id":    jobID,
		"user_id":   userID,
		"old_state": oldState,
		"new_state": newState,
		"timestamp": timestamp.Unix(),
	}).Info("Job state changed")
}

// LogJobFailure logs a failed or cancelled job with its error kind.
func (al *AuditLogger) LogJobFailure(jobID, userID, errorKind, message string) {
	al.WithFields(logrus.Fields{
		"job_id":     jobID,
		"user_id":    userID,
		"error_kind": errorKind,
		"error":      message,
	}).Warn("Job did not complete")
}

// LogClassificationOverride logs a manual safe/unsafe flag being set or cleared.
func (al *AuditLogger) LogClassificationOverride(matchID string, isSafe *bool, changedBy string) {
	fields := logrus.Fields{
		"match_id":   matchID,
		"changed_by": changedBy,
	}
	if isSafe == nil {
		fields["override"] = "cleared"
	} else {
		fields["override"] = *isSafe
	}
	al.WithFields(fields).Info("Classification override changed")
}
