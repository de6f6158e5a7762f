package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/kendall-kelly/install-intake-api/models"
	"github.com/kendall-kelly/install-intake-api/storage"
	"github.com/kendall-kelly/install-intake-api/utils"
)

// SubmissionStoreTestSuite checks the behaviour every SubmissionStore must share
type SubmissionStoreTestSuite struct {
	suite.Suite
	newStore func(t *testing.T) SubmissionStore
	store    SubmissionStore
	ctx      context.Context
}

// SetupTest gives each test an empty store
func (suite *SubmissionStoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = suite.newStore(suite.T())
}

func acmeSubmission() models.Submission {
	return models.Submission{
		DistributorName: "Acme",
		InstallDate:     "2025-01-10",
		NeededByDate:    "2025-01-05",
		RSM:             "J. Doe",
		Acknowledgment:  true,
		NexusQuantity:   2,
	}
}

func (suite *SubmissionStoreTestSuite) create(id, timestamp string, status models.Status) *models.Submission {
	sub := acmeSubmission()
	sub.ID = id
	sub.Timestamp = timestamp
	sub.Status = status
	_, err := suite.store.Create(suite.ctx, &sub)
	suite.Require().NoError(err)
	return &sub
}

func (suite *SubmissionStoreTestSuite) TestCreateThenGetByID() {
	notes := "Loading dock at rear"
	in := acmeSubmission()
	in.EndUser = "Factory 9"
	in.AdditionalNotes = &notes
	sub := models.NewSubmission(in)

	res, err := suite.store.Create(suite.ctx, sub)
	suite.Require().NoError(err)
	suite.Equal(int64(1), res.RowsAffected)

	got, err := suite.store.GetByID(suite.ctx, sub.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(got)

	suite.Equal(*sub, *got)
	suite.Equal(models.StatusPending, got.Status)
	suite.Nil(got.StatusUpdated)
	suite.Nil(got.InvoiceNumber)
	suite.Equal(2, got.NexusQuantity)
	suite.Equal(0, got.SensorPowerUnitQuantity)
	suite.True(got.Acknowledgment)
}

func (suite *SubmissionStoreTestSuite) TestCreateDefaultsStatusAndTimestamp() {
	sub := acmeSubmission()
	sub.ID = "100"

	_, err := suite.store.Create(suite.ctx, &sub)
	suite.Require().NoError(err)

	got, err := suite.store.GetByID(suite.ctx, "100")
	suite.Require().NoError(err)
	suite.Require().NotNil(got)
	suite.Equal(models.StatusPending, got.Status)
	suite.NotEmpty(got.Timestamp)
}

func (suite *SubmissionStoreTestSuite) TestCreateDuplicateID() {
	suite.create("1", "2025-01-01T00:00:00.000Z", models.StatusPending)

	dup := acmeSubmission()
	dup.ID = "1"
	_, err := suite.store.Create(suite.ctx, &dup)
	suite.Require().Error(err)
	suite.True(storage.IsStorageError(err))
	suite.True(storage.IsDuplicateKey(err))
}

func (suite *SubmissionStoreTestSuite) TestCreateRejectsInvalidInput() {
	_, err := suite.store.Create(suite.ctx, nil)
	suite.Error(err)

	noID := acmeSubmission()
	_, err = suite.store.Create(suite.ctx, &noID)
	suite.Error(err)

	negative := acmeSubmission()
	negative.ID = "2"
	negative.WifiRepeaterQuantity = -1
	_, err = suite.store.Create(suite.ctx, &negative)
	suite.Require().Error(err)
	var verr *utils.ValidationError
	suite.Require().ErrorAs(err, &verr)
	suite.Equal(utils.CodeInvalidQuantity, verr.Code)

	huge := acmeSubmission()
	huge.ID = "4"
	huge.NexusQuantity = utils.MaxQuantity + 1
	_, err = suite.store.Create(suite.ctx, &huge)
	suite.Require().ErrorAs(err, &verr)
	suite.Equal(utils.CodeInvalidQuantity, verr.Code)

	badStatus := acmeSubmission()
	badStatus.ID = "3"
	badStatus.Status = "maybe"
	_, err = suite.store.Create(suite.ctx, &badStatus)
	suite.Error(err)

	all, err := suite.store.GetAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(all)
}

func (suite *SubmissionStoreTestSuite) TestGetAllEmpty() {
	all, err := suite.store.GetAll(suite.ctx)
	suite.Require().NoError(err)
	suite.NotNil(all)
	suite.Empty(all)
}

func (suite *SubmissionStoreTestSuite) TestGetAllNewestFirst() {
	suite.create("1", "2025-01-01T00:00:00.000Z", models.StatusPending)
	suite.create("2", "2025-01-03T00:00:00.000Z", models.StatusApproved)
	suite.create("3", "2025-01-02T00:00:00.000Z", models.StatusPending)
	suite.create("4", "2025-01-03T00:00:00.000Z", models.StatusRejected)

	all, err := suite.store.GetAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(all, 4)

	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID
		if i > 0 {
			suite.GreaterOrEqual(all[i-1].Timestamp, s.Timestamp)
		}
	}
	suite.Equal([]string{"4", "2", "3", "1"}, ids)
}

func (suite *SubmissionStoreTestSuite) TestSameTimestampOrdersIDsNumerically() {
	const ts = "2025-01-02T00:00:00.000Z"
	for _, id := range []string{"9", "10", "100", "11"} {
		suite.create(id, ts, models.StatusPending)
	}

	all, err := suite.store.GetAll(suite.ctx)
	suite.Require().NoError(err)
	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID
	}
	suite.Equal([]string{"100", "11", "10", "9"}, ids)

	pending, err := suite.store.GetByStatus(suite.ctx, models.StatusPending)
	suite.Require().NoError(err)
	suite.Equal(all, pending)
}

func (suite *SubmissionStoreTestSuite) TestGetByIDUnknown() {
	got, err := suite.store.GetByID(suite.ctx, "unknown-id")
	suite.NoError(err)
	suite.Nil(got)
}

func (suite *SubmissionStoreTestSuite) TestGetByStatusMatchesGetAllOrder() {
	suite.create("1", "2025-01-01T00:00:00.000Z", models.StatusPending)
	suite.create("2", "2025-01-02T00:00:00.000Z", models.StatusApproved)
	suite.create("3", "2025-01-03T00:00:00.000Z", models.StatusPending)
	suite.create("4", "2025-01-04T00:00:00.000Z", models.StatusRejected)
	suite.create("5", "2025-01-05T00:00:00.000Z", models.StatusPending)

	all, err := suite.store.GetAll(suite.ctx)
	suite.Require().NoError(err)

	var expected []string
	for _, s := range all {
		if s.Status == models.StatusPending {
			expected = append(expected, s.ID)
		}
	}

	pending, err := suite.store.GetByStatus(suite.ctx, models.StatusPending)
	suite.Require().NoError(err)

	got := make([]string, len(pending))
	for i, s := range pending {
		got[i] = s.ID
		suite.Equal(models.StatusPending, s.Status)
	}
	suite.Equal(expected, got)
	suite.Equal([]string{"5", "3", "1"}, got)

	none, err := suite.store.GetByStatus(suite.ctx, models.Status("archived"))
	suite.Require().NoError(err)
	suite.Empty(none)
}

func (suite *SubmissionStoreTestSuite) TestUpdateStatus() {
	created := suite.create("1", "2025-01-01T00:00:00.000Z", models.StatusPending)

	res, err := suite.store.UpdateStatus(suite.ctx, "1", models.StatusApproved)
	suite.Require().NoError(err)
	suite.Equal(int64(1), res.RowsAffected)

	got, err := suite.store.GetByID(suite.ctx, "1")
	suite.Require().NoError(err)
	suite.Require().NotNil(got)
	suite.Equal(models.StatusApproved, got.Status)
	suite.Require().NotNil(got.StatusUpdated)
	suite.Greater(*got.StatusUpdated, got.Timestamp)

	// Nothing but status and status_updated may change
	got.Status = created.Status
	got.StatusUpdated = created.StatusUpdated
	suite.Equal(*created, *got)
}

func (suite *SubmissionStoreTestSuite) TestUpdateStatusStampsFrozenClock() {
	sub := models.NewSubmission(acmeSubmission())
	_, err := suite.store.Create(suite.ctx, sub)
	suite.Require().NoError(err)

	created, err := time.Parse(models.TimestampFormat, sub.Timestamp)
	suite.Require().NoError(err)

	frozen := sub.Timestamp
	defer func(restore func() string) { now = restore }(now)
	now = func() string { return frozen }

	// A review in the same millisecond is never stamped before creation
	_, err = suite.store.UpdateStatus(suite.ctx, sub.ID, models.StatusApproved)
	suite.Require().NoError(err)
	got, err := suite.store.GetByID(suite.ctx, sub.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(got.StatusUpdated)
	suite.Equal(sub.Timestamp, *got.StatusUpdated)

	frozen = models.FormatTimestamp(created.Add(time.Millisecond))
	_, err = suite.store.UpdateStatus(suite.ctx, sub.ID, models.StatusRejected)
	suite.Require().NoError(err)
	got, err = suite.store.GetByID(suite.ctx, sub.ID)
	suite.Require().NoError(err)
	suite.Equal(frozen, *got.StatusUpdated)
	suite.Greater(*got.StatusUpdated, got.Timestamp)
	suite.Equal(sub.Timestamp, got.Timestamp)
}

func (suite *SubmissionStoreTestSuite) TestUpdateStatusTracksLatestChange() {
	suite.create("1", "2025-01-01T00:00:00.000Z", models.StatusPending)

	_, err := suite.store.UpdateStatus(suite.ctx, "1", models.StatusApproved)
	suite.Require().NoError(err)
	first, err := suite.store.GetByID(suite.ctx, "1")
	suite.Require().NoError(err)

	_, err = suite.store.UpdateStatus(suite.ctx, "1", models.StatusRejected)
	suite.Require().NoError(err)
	second, err := suite.store.GetByID(suite.ctx, "1")
	suite.Require().NoError(err)

	suite.Equal(models.StatusRejected, second.Status)
	suite.GreaterOrEqual(*second.StatusUpdated, *first.StatusUpdated)
}

func (suite *SubmissionStoreTestSuite) TestUpdateStatusUnknownIDIsNoop() {
	suite.create("1", "2025-01-01T00:00:00.000Z", models.StatusPending)

	res, err := suite.store.UpdateStatus(suite.ctx, "unknown-id", models.StatusApproved)
	suite.Require().NoError(err)
	suite.Equal(int64(0), res.RowsAffected)

	got, err := suite.store.GetByID(suite.ctx, "unknown-id")
	suite.NoError(err)
	suite.Nil(got)

	stats, err := suite.store.GetStats(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(models.Stats{Total: 1, Pending: 1}, stats)
}

func (suite *SubmissionStoreTestSuite) TestGetStats() {
	stats, err := suite.store.GetStats(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(models.Stats{}, stats)

	suite.create("1", "2025-01-01T00:00:00.000Z", models.StatusPending)
	suite.create("2", "2025-01-02T00:00:00.000Z", models.StatusPending)
	suite.create("3", "2025-01-03T00:00:00.000Z", models.StatusPending)
	suite.create("4", "2025-01-04T00:00:00.000Z", models.StatusApproved)

	_, err = suite.store.UpdateStatus(suite.ctx, "1", models.StatusRejected)
	suite.Require().NoError(err)
	_, err = suite.store.UpdateStatus(suite.ctx, "2", models.StatusApproved)
	suite.Require().NoError(err)

	stats, err = suite.store.GetStats(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(models.Stats{Total: 4, Pending: 1, Approved: 2, Rejected: 1}, stats)
	suite.Equal(stats.Total, stats.Pending+stats.Approved+stats.Rejected)
}

func TestSubmissionRepositorySQLite(t *testing.T) {
	suite.Run(t, &SubmissionStoreTestSuite{
		newStore: func(t *testing.T) SubmissionStore {
			t.Helper()
			adapter, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "submissions.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { _ = adapter.Close() })
			if err := storage.EnsureSchema(context.Background(), adapter); err != nil {
				t.Fatalf("ensure schema: %v", err)
			}
			return NewSubmissionRepository(adapter)
		},
	})
}

func TestFileSubmissionStore(t *testing.T) {
	suite.Run(t, &SubmissionStoreTestSuite{
		newStore: func(t *testing.T) SubmissionStore {
			t.Helper()
			store, err := OpenFileSubmissionStore(filepath.Join(t.TempDir(), "submissions.json"))
			if err != nil {
				t.Fatalf("open fallback: %v", err)
			}
			return store
		},
	})
}

func TestMockSubmissionStore(t *testing.T) {
	suite.Run(t, &SubmissionStoreTestSuite{
		newStore: func(t *testing.T) SubmissionStore {
			return NewMockSubmissionStore()
		},
	})
}

func TestInstrumentedSubmissionStore(t *testing.T) {
	suite.Run(t, &SubmissionStoreTestSuite{
		newStore: func(t *testing.T) SubmissionStore {
			return NewInstrumentedStore(NewMockSubmissionStore(), "mock")
		},
	})
}
