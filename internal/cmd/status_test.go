package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BioHazard786/rendezvous/internal/signaling"
)

func TestFetchStats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		w.Write([]byte(`{"connections":3,"sessions":2,"waiting":1,"paired":1,"reserved":1}`))
	}))
	defer ts.Close()

	c := &cobra.Command{}
	c.SetContext(context.Background())

	stats, err := fetchStats(c, ts.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, &signaling.Stats{Connections: 3, Sessions: 2, Waiting: 1, Paired: 1, Reserved: 1}, stats)
}

func TestFetchStatsBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	c := &cobra.Command{}
	c.SetContext(context.Background())

	_, err := fetchStats(c, ts.URL)
	assert.ErrorContains(t, err, "404")
}
