// Package weclapp provides types, query building and resource operations for
// the weclapp REST API.
//
// # Overview
//
// A concrete client is constructed by the wclient package, which wires
// configuration, transport, authentication, caching and metrics. The types in
// this package describe what is sent and how failures are reported.
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/weclapp-client/pkg/wclient"
//	  "github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := wclient.New(ctx, &weclapp.Config{Tenant: "acme", APIToken: "secret"})
//	  if err != nil { log.Fatal(err) }
//
//	  articles, err := cli.Query("article").All(ctx, weclapp.NewQueryParams().
//	    WhereEq("active", true).
//	    WhereIn("articleType", "STORABLE", "SERVICE").
//	    OrderDesc("lastModifiedDate").
//	    Limit(250))
//	  if err != nil { log.Fatal(err) }
//	  _ = articles
//	}
//
// # Queries and pagination
//
// QueryParams is a fluent builder for filters ("{field}-{operator}"), OR
// filters ("or-..."), named OR groups ("or{name}-..."), sorting and property
// selection. By default All fetches every page (100 items each) until a short
// page; Limit caps the total client-side, and Page selects a single page.
//
// # Errors
//
// Every failure surfaces as *APIError with a stable ErrorCode. Codes are
// banded (generic, communication, data validation, RFC 7807 problems, field
// validation) and derived from the problem "type" of the response body when
// present, otherwise from the status code. IsNotFound, IsUnauthorized,
// IsTimeout and IsValidation cover the common branches.
package weclapp
