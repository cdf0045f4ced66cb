// file: internal/database/mock_store.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-2f3a4b5c6d7e

package database

// MockStore is a simple mock implementation for testing services. Unset
// funcs behave like an empty store.
type MockStore struct {
	CloseFunc func() error

	// Series methods
	CreateSeriesFunc    func(series *Series) (*Series, error)
	GetSeriesByIDFunc   func(id string) (*Series, error)
	GetSeriesByCodeFunc func(code string) (*Series, error)
	ListSeriesFunc      func() ([]Series, error)
	SearchSeriesFunc    func(query string, limit int) ([]Series, error)
	UpdateSeriesFunc    func(series *Series) error
	DeleteSeriesFunc    func(id string) error

	// Policy methods
	UpsertPolicyFunc func(policy *SeriesPolicy) error
	GetPolicyFunc    func(seriesID string) (*SeriesPolicy, error)
	ListPoliciesFunc func() ([]SeriesPolicy, error)

	// Volume methods
	CreateVolumeFunc         func(volume *Volume) (*Volume, error)
	GetVolumeByIDFunc        func(id string) (*Volume, error)
	GetVolumeByHashFunc      func(hash string) (*Volume, error)
	ListVolumesBySeriesFunc  func(seriesID string) ([]Volume, error)
	ReassignVolumesFunc      func(fromSeriesID, toSeriesID string) (int, error)
	UpdateVolumeProgressFunc func(id string, currentPage int) (*Volume, error)
	GetRecentlyReadFunc      func(limit int) ([]Volume, error)
	DeleteVolumeFunc         func(id string) error

	// Matching log methods
	CreateMatchingLogFunc func(entry *MatchingLog) error
	ListMatchingLogsFunc  func(limit int) ([]MatchingLog, error)
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockStore) CreateSeries(series *Series) (*Series, error) {
	if m.CreateSeriesFunc != nil {
		return m.CreateSeriesFunc(series)
	}
	created := *series
	if err := prepareSeries(&created, created.CreatedAt); err != nil {
		return nil, err
	}
	return &created, nil
}

func (m *MockStore) GetSeriesByID(id string) (*Series, error) {
	if m.GetSeriesByIDFunc != nil {
		return m.GetSeriesByIDFunc(id)
	}
	return nil, ErrNotFound
}

func (m *MockStore) GetSeriesByCode(code string) (*Series, error) {
	if m.GetSeriesByCodeFunc != nil {
		return m.GetSeriesByCodeFunc(code)
	}
	return nil, ErrNotFound
}

func (m *MockStore) ListSeries() ([]Series, error) {
	if m.ListSeriesFunc != nil {
		return m.ListSeriesFunc()
	}
	return nil, nil
}

func (m *MockStore) SearchSeries(query string, limit int) ([]Series, error) {
	if m.SearchSeriesFunc != nil {
		return m.SearchSeriesFunc(query, limit)
	}
	return nil, nil
}

func (m *MockStore) UpdateSeries(series *Series) error {
	if m.UpdateSeriesFunc != nil {
		return m.UpdateSeriesFunc(series)
	}
	return nil
}

func (m *MockStore) DeleteSeries(id string) error {
	if m.DeleteSeriesFunc != nil {
		return m.DeleteSeriesFunc(id)
	}
	return ErrNotFound
}

func (m *MockStore) UpsertPolicy(policy *SeriesPolicy) error {
	if m.UpsertPolicyFunc != nil {
		return m.UpsertPolicyFunc(policy)
	}
	return nil
}

func (m *MockStore) GetPolicy(seriesID string) (*SeriesPolicy, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc(seriesID)
	}
	return nil, ErrNotFound
}

func (m *MockStore) ListPolicies() ([]SeriesPolicy, error) {
	if m.ListPoliciesFunc != nil {
		return m.ListPoliciesFunc()
	}
	return nil, nil
}

func (m *MockStore) CreateVolume(volume *Volume) (*Volume, error) {
	if m.CreateVolumeFunc != nil {
		return m.CreateVolumeFunc(volume)
	}
	created := *volume
	if err := prepareVolume(&created, created.CreatedAt); err != nil {
		return nil, err
	}
	return &created, nil
}

func (m *MockStore) GetVolumeByID(id string) (*Volume, error) {
	if m.GetVolumeByIDFunc != nil {
		return m.GetVolumeByIDFunc(id)
	}
	return nil, ErrNotFound
}

func (m *MockStore) GetVolumeByHash(hash string) (*Volume, error) {
	if m.GetVolumeByHashFunc != nil {
		return m.GetVolumeByHashFunc(hash)
	}
	return nil, ErrNotFound
}

func (m *MockStore) ListVolumesBySeries(seriesID string) ([]Volume, error) {
	if m.ListVolumesBySeriesFunc != nil {
		return m.ListVolumesBySeriesFunc(seriesID)
	}
	return nil, nil
}

func (m *MockStore) ReassignVolumes(fromSeriesID, toSeriesID string) (int, error) {
	if m.ReassignVolumesFunc != nil {
		return m.ReassignVolumesFunc(fromSeriesID, toSeriesID)
	}
	return 0, nil
}

func (m *MockStore) UpdateVolumeProgress(id string, currentPage int) (*Volume, error) {
	if m.UpdateVolumeProgressFunc != nil {
		return m.UpdateVolumeProgressFunc(id, currentPage)
	}
	return nil, ErrNotFound
}

func (m *MockStore) GetRecentlyRead(limit int) ([]Volume, error) {
	if m.GetRecentlyReadFunc != nil {
		return m.GetRecentlyReadFunc(limit)
	}
	return nil, nil
}

func (m *MockStore) DeleteVolume(id string) error {
	if m.DeleteVolumeFunc != nil {
		return m.DeleteVolumeFunc(id)
	}
	return ErrNotFound
}

func (m *MockStore) CreateMatchingLog(entry *MatchingLog) error {
	if m.CreateMatchingLogFunc != nil {
		return m.CreateMatchingLogFunc(entry)
	}
	return nil
}

func (m *MockStore) ListMatchingLogs(limit int) ([]MatchingLog, error) {
	if m.ListMatchingLogsFunc != nil {
		return m.ListMatchingLogsFunc(limit)
	}
	return nil, nil
}
