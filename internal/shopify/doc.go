// Package shopify implements remote.Remote over the GraphQL Admin API.
//
// Every call is a single POST of a query document and its variables to the
// shop's graphql.json endpoint, authenticated by the X-Shopify-Access-Token
// header. Responses may be gzip encoded.
//
// Failures fall into two classes. Transport failures (HTTP status, network,
// top-level GraphQL errors, throttling that outlasts the retry budget) are
// returned as *Error. In-band mutation rejections are returned as
// remote.UserErrors so that the engine can tell them apart.
package shopify
