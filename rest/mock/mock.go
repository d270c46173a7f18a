// Package mock provides a hand-rolled test double for rest.Client.
// Tests assign the Impl fields they expect to be hit; any unassigned
// method fails the test when called.
package mock

import (
	"context"
	"net/http"
	"testing"

	"github.com/c360-ai/lakeclient/rest"
)

func New(t *testing.T) *MockClient {
	return &MockClient{t: t}
}

type BuildArgs struct {
	Method   string
	Endpoint string
}

type UploadTableArgs = rest.UploadTableParams

type RegisterTableArgs = rest.RegisterTableParams

type TablePathsArgs struct {
	Dataset string
	Table   string
	Groups  []string
}

type MockClient struct {
	t    *testing.T
	Impl struct {
		Build     func(ctx context.Context, method string, endpoint string, options ...rest.RequestOption) (*http.Request, error)
		Send      func(req *http.Request) (*http.Response, error)
		Do        func(ctx context.Context, method string, endpoint string, out any, options ...rest.RequestOption) error
		UserScope func(ctx context.Context) (string, error)
		Dataspace func(ctx context.Context, groups ...string) ([]string, error)

		GetDataset         func(ctx context.Context, name string, groups ...string) (map[string]any, error)
		BuildGetDataset    func(ctx context.Context, name string, groups ...string) (*http.Request, error)
		CreateDataset      func(ctx context.Context, name string, dryRun bool, groups ...string) (map[string]any, error)
		BuildUpdateDataset func(ctx context.Context, name string, fields map[string]any, groups ...string) (*http.Request, error)
		DatasetPermissions func(ctx context.Context, name string, groups ...string) (map[string]any, error)
		InitializeDataset  func(ctx context.Context, name string, localDir string, tableDetails map[string]any, groups ...string) (map[string]any, error)

		UploadTable   func(ctx context.Context, p rest.UploadTableParams) (map[string]any, error)
		RegisterTable func(ctx context.Context, p rest.RegisterTableParams) (map[string]any, error)
		TablePaths    func(ctx context.Context, dataset string, table string, groups ...string) ([]string, error)
		LoadToViztool func(ctx context.Context, dataset string, table string, zone string, groups ...string) (map[string]any, error)

		GetPipeline       func(ctx context.Context, name string) (map[string]any, error)
		BuildGetPipeline  func(ctx context.Context, name string) (*http.Request, error)
		BuildPushPipeline func(ctx context.Context, name string, state map[string]any) (*http.Request, error)
		CreatePipeline    func(ctx context.Context, name string, path string) (map[string]any, error)
		DeployPipelines   func(ctx context.Context, dir string) (map[string]any, error)
		DeletePipeline    func(ctx context.Context, name string) error

		ExperimentTrain  func(ctx context.Context, p rest.ExperimentParams) (map[string]any, error)
		ExperimentStatus func(ctx context.Context, name string) (map[string]any, error)
		ExperimentWait   func(ctx context.Context, name string) (map[string]any, error)
	}
	Calls struct {
		Build     []BuildArgs
		Send      []*http.Request
		Do        []BuildArgs
		UserScope int
		Dataspace [][]string

		GetDataset         []string
		BuildGetDataset    []string
		CreateDataset      []string
		BuildUpdateDataset []string
		DatasetPermissions []string
		InitializeDataset  []string

		UploadTable   []UploadTableArgs
		RegisterTable []RegisterTableArgs
		TablePaths    []TablePathsArgs
		LoadToViztool []TablePathsArgs

		GetPipeline       []string
		BuildGetPipeline  []string
		BuildPushPipeline []string
		CreatePipeline    []string
		DeployPipelines   []string
		DeletePipeline    []string

		ExperimentTrain  []rest.ExperimentParams
		ExperimentStatus []string
		ExperimentWait   []string
	}
}

var _ rest.Client = &MockClient{}

func (m *MockClient) Build(ctx context.Context, method string, endpoint string, options ...rest.RequestOption) (*http.Request, error) {
	m.t.Helper()
	m.Calls.Build = append(m.Calls.Build, BuildArgs{Method: method, Endpoint: endpoint})
	if m.Impl.Build == nil {
		m.t.Fatal("Build is not ready to be called")
	}
	return m.Impl.Build(ctx, method, endpoint, options...)
}

func (m *MockClient) Send(req *http.Request) (*http.Response, error) {
	m.t.Helper()
	m.Calls.Send = append(m.Calls.Send, req)
	if m.Impl.Send == nil {
		m.t.Fatal("Send is not ready to be called")
	}
	return m.Impl.Send(req)
}

func (m *MockClient) Do(ctx context.Context, method string, endpoint string, out any, options ...rest.RequestOption) error {
	m.t.Helper()
	m.Calls.Do = append(m.Calls.Do, BuildArgs{Method: method, Endpoint: endpoint})
	if m.Impl.Do == nil {
		m.t.Fatal("Do is not ready to be called")
	}
	return m.Impl.Do(ctx, method, endpoint, out, options...)
}

func (m *MockClient) UserScope(ctx context.Context) (string, error) {
	m.t.Helper()
	m.Calls.UserScope += 1
	if m.Impl.UserScope == nil {
		m.t.Fatal("UserScope is not ready to be called")
	}
	return m.Impl.UserScope(ctx)
}

func (m *MockClient) Dataspace(ctx context.Context, groups ...string) ([]string, error) {
	m.t.Helper()
	m.Calls.Dataspace = append(m.Calls.Dataspace, groups)
	if m.Impl.Dataspace == nil {
		m.t.Fatal("Dataspace is not ready to be called")
	}
	return m.Impl.Dataspace(ctx, groups...)
}

func (m *MockClient) GetDataset(ctx context.Context, name string, groups ...string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.GetDataset = append(m.Calls.GetDataset, name)
	if m.Impl.GetDataset == nil {
		m.t.Fatal("GetDataset is not ready to be called")
	}
	return m.Impl.GetDataset(ctx, name, groups...)
}

func (m *MockClient) BuildGetDataset(ctx context.Context, name string, groups ...string) (*http.Request, error) {
	m.t.Helper()
	m.Calls.BuildGetDataset = append(m.Calls.BuildGetDataset, name)
	if m.Impl.BuildGetDataset == nil {
		m.t.Fatal("BuildGetDataset is not ready to be called")
	}
	return m.Impl.BuildGetDataset(ctx, name, groups...)
}

func (m *MockClient) CreateDataset(ctx context.Context, name string, dryRun bool, groups ...string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.CreateDataset = append(m.Calls.CreateDataset, name)
	if m.Impl.CreateDataset == nil {
		m.t.Fatal("CreateDataset is not ready to be called")
	}
	return m.Impl.CreateDataset(ctx, name, dryRun, groups...)
}

func (m *MockClient) BuildUpdateDataset(ctx context.Context, name string, fields map[string]any, groups ...string) (*http.Request, error) {
	m.t.Helper()
	m.Calls.BuildUpdateDataset = append(m.Calls.BuildUpdateDataset, name)
	if m.Impl.BuildUpdateDataset == nil {
		m.t.Fatal("BuildUpdateDataset is not ready to be called")
	}
	return m.Impl.BuildUpdateDataset(ctx, name, fields, groups...)
}

func (m *MockClient) DatasetPermissions(ctx context.Context, name string, groups ...string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.DatasetPermissions = append(m.Calls.DatasetPermissions, name)
	if m.Impl.DatasetPermissions == nil {
		m.t.Fatal("DatasetPermissions is not ready to be called")
	}
	return m.Impl.DatasetPermissions(ctx, name, groups...)
}

func (m *MockClient) InitializeDataset(ctx context.Context, name string, localDir string, tableDetails map[string]any, groups ...string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.InitializeDataset = append(m.Calls.InitializeDataset, name)
	if m.Impl.InitializeDataset == nil {
		m.t.Fatal("InitializeDataset is not ready to be called")
	}
	return m.Impl.InitializeDataset(ctx, name, localDir, tableDetails, groups...)
}

func (m *MockClient) UploadTable(ctx context.Context, p rest.UploadTableParams) (map[string]any, error) {
	m.t.Helper()
	m.Calls.UploadTable = append(m.Calls.UploadTable, p)
	if m.Impl.UploadTable == nil {
		m.t.Fatal("UploadTable is not ready to be called")
	}
	return m.Impl.UploadTable(ctx, p)
}

func (m *MockClient) RegisterTable(ctx context.Context, p rest.RegisterTableParams) (map[string]any, error) {
	m.t.Helper()
	m.Calls.RegisterTable = append(m.Calls.RegisterTable, p)
	if m.Impl.RegisterTable == nil {
		m.t.Fatal("RegisterTable is not ready to be called")
	}
	return m.Impl.RegisterTable(ctx, p)
}

func (m *MockClient) TablePaths(ctx context.Context, dataset string, table string, groups ...string) ([]string, error) {
	m.t.Helper()
	m.Calls.TablePaths = append(m.Calls.TablePaths, TablePathsArgs{Dataset: dataset, Table: table, Groups: groups})
	if m.Impl.TablePaths == nil {
		m.t.Fatal("TablePaths is not ready to be called")
	}
	return m.Impl.TablePaths(ctx, dataset, table, groups...)
}

func (m *MockClient) LoadToViztool(ctx context.Context, dataset string, table string, zone string, groups ...string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.LoadToViztool = append(m.Calls.LoadToViztool, TablePathsArgs{Dataset: dataset, Table: table, Groups: groups})
	if m.Impl.LoadToViztool == nil {
		m.t.Fatal("LoadToViztool is not ready to be called")
	}
	return m.Impl.LoadToViztool(ctx, dataset, table, zone, groups...)
}

func (m *MockClient) GetPipeline(ctx context.Context, name string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.GetPipeline = append(m.Calls.GetPipeline, name)
	if m.Impl.GetPipeline == nil {
		m.t.Fatal("GetPipeline is not ready to be called")
	}
	return m.Impl.GetPipeline(ctx, name)
}

func (m *MockClient) BuildGetPipeline(ctx context.Context, name string) (*http.Request, error) {
	m.t.Helper()
	m.Calls.BuildGetPipeline = append(m.Calls.BuildGetPipeline, name)
	if m.Impl.BuildGetPipeline == nil {
		m.t.Fatal("BuildGetPipeline is not ready to be called")
	}
	return m.Impl.BuildGetPipeline(ctx, name)
}

func (m *MockClient) BuildPushPipeline(ctx context.Context, name string, state map[string]any) (*http.Request, error) {
	m.t.Helper()
	m.Calls.BuildPushPipeline = append(m.Calls.BuildPushPipeline, name)
	if m.Impl.BuildPushPipeline == nil {
		m.t.Fatal("BuildPushPipeline is not ready to be called")
	}
	return m.Impl.BuildPushPipeline(ctx, name, state)
}

func (m *MockClient) CreatePipeline(ctx context.Context, name string, path string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.CreatePipeline = append(m.Calls.CreatePipeline, name)
	if m.Impl.CreatePipeline == nil {
		m.t.Fatal("CreatePipeline is not ready to be called")
	}
	return m.Impl.CreatePipeline(ctx, name, path)
}

func (m *MockClient) DeployPipelines(ctx context.Context, dir string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.DeployPipelines = append(m.Calls.DeployPipelines, dir)
	if m.Impl.DeployPipelines == nil {
		m.t.Fatal("DeployPipelines is not ready to be called")
	}
	return m.Impl.DeployPipelines(ctx, dir)
}

func (m *MockClient) DeletePipeline(ctx context.Context, name string) error {
	m.t.Helper()
	m.Calls.DeletePipeline = append(m.Calls.DeletePipeline, name)
	if m.Impl.DeletePipeline == nil {
		m.t.Fatal("DeletePipeline is not ready to be called")
	}
	return m.Impl.DeletePipeline(ctx, name)
}

func (m *MockClient) ExperimentTrain(ctx context.Context, p rest.ExperimentParams) (map[string]any, error) {
	m.t.Helper()
	m.Calls.ExperimentTrain = append(m.Calls.ExperimentTrain, p)
	if m.Impl.ExperimentTrain == nil {
		m.t.Fatal("ExperimentTrain is not ready to be called")
	}
	return m.Impl.ExperimentTrain(ctx, p)
}

func (m *MockClient) ExperimentStatus(ctx context.Context, name string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.ExperimentStatus = append(m.Calls.ExperimentStatus, name)
	if m.Impl.ExperimentStatus == nil {
		m.t.Fatal("ExperimentStatus is not ready to be called")
	}
	return m.Impl.ExperimentStatus(ctx, name)
}

func (m *MockClient) ExperimentWait(ctx context.Context, name string) (map[string]any, error) {
	m.t.Helper()
	m.Calls.ExperimentWait = append(m.Calls.ExperimentWait, name)
	if m.Impl.ExperimentWait == nil {
		m.t.Fatal("ExperimentWait is not ready to be called")
	}
	return m.Impl.ExperimentWait(ctx, name)
}
