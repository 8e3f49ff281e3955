// Package wclient provides the primary entry point for constructing a weclapp
// API client that implements the weclapp.Client interface.
//
// It layers configuration, HTTP transport, token authentication, caching and
// metrics on top of the query and resource types defined in the weclapp
// package.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
//	  "github.com/fivetwenty-io/weclapp-client/pkg/wclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := wclient.NewWithToken(ctx, "acme", "api-token")
//	  if err != nil { log.Fatal(err) }
//
//	  // Or from WECLAPP_TENANT, WECLAPP_API_TOKEN and friends:
//	  cli, err = wclient.NewFromEnv(ctx)
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  customer, err := cli.Query("customer").First(ctx, weclapp.NewQueryParams().
//	    WhereEq("customerNumber", "C-1000"))
//	  if err != nil { log.Fatal(err) }
//	  _ = customer
//	}
package wclient
