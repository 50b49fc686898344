package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCleanPass(t *testing.T) {
	before := testutil.ToFloat64(CleanPassesTotal.WithLabelValues("blocked", "completed"))
	RecordCleanPass("blocked", "completed", 0.2)
	assert.Equal(t, before+1, testutil.ToFloat64(CleanPassesTotal.WithLabelValues("blocked", "completed")))
}

func TestRecordClusters(t *testing.T) {
	clusters := testutil.ToFloat64(ClustersTotal.WithLabelValues("naive"))
	linked := testutil.ToFloat64(RecordsLinkedTotal.WithLabelValues("naive"))
	rejected := testutil.ToFloat64(RecordsRejectedTotal.WithLabelValues("naive"))

	RecordClusters("naive", 2, 3, 1)

	assert.Equal(t, clusters+2, testutil.ToFloat64(ClustersTotal.WithLabelValues("naive")))
	assert.Equal(t, linked+3, testutil.ToFloat64(RecordsLinkedTotal.WithLabelValues("naive")))
	assert.Equal(t, rejected+1, testutil.ToFloat64(RecordsRejectedTotal.WithLabelValues("naive")))
}

func TestRecordPropagatedInspections_IgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(PropagatedInspectionsTotal)
	RecordPropagatedInspections(0)
	assert.Equal(t, before, testutil.ToFloat64(PropagatedInspectionsTotal))
	RecordPropagatedInspections(4)
	assert.Equal(t, before+4, testutil.ToFloat64(PropagatedInspectionsTotal))
}
