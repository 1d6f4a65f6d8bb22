package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/metrics"
)

// Worker timings.
const (
	dequeueTimeout = 5 * time.Second
	errorBackoff   = 2 * time.Second
)

// RunRefreshWorker dequeues refresh jobs and runs them until ctx is cancelled.
func RunRefreshWorker(ctx context.Context, ing *Ingester, q JobQueue, log *logrus.Entry) {
	log.Info("refresh worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info("refresh worker stopping")
			return
		default:
		}

		job, err := q.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			log.WithError(err).Error("refresh worker: dequeue")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		entry := log.WithField("playlist_id", job.PlaylistID)
		p, err := ing.Refresh(ctx, job.PlaylistID)
		switch {
		case err == nil:
			metrics.RefreshJobs.WithLabelValues("success").Inc()
			entry.WithFields(logrus.Fields{
				"channels": p.ChannelCount,
				"waited":   time.Since(job.RequestedAt).Round(time.Millisecond).String(),
			}).Info("refresh job done")
		case errors.Is(err, ErrRefreshInProgress):
			metrics.RefreshJobs.WithLabelValues("skipped").Inc()
			entry.Info("refresh job skipped: already running")
		default:
			metrics.RefreshJobs.WithLabelValues("failure").Inc()
			entry.WithError(err).Error("refresh job failed")
		}
	}
}
