// Package containers manages Docker containers for integration tests using
// testcontainers-go.
//
// The repository integration tests run against a real MySQL 8.0 container,
// typically owned by TestMain:
//
//	var mysqlContainer *containers.MySQLContainer
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    mysqlContainer, err = containers.NewMySQLContainer(ctx, nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = mysqlContainer.Terminate(ctx)
//	    os.Exit(code)
//	}
//
// Tests using this package carry the "integration" build tag:
//
//	go test -tags=integration ./...
package containers
