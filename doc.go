// Package cognitoemu implements the hard core of a local user pool identity
// service: the authentication state machine, the user pool domain store, the
// lifecycle trigger runtime, and the JWT token generator. It reproduces the
// wire-observable behavior of a managed Cognito-style user pool without
// depending on the managed service itself.
//
// # Architecture boundaries
//
// cognitoemu is the public surface. It exposes [Engine], [Builder], [Config],
// the operation input/output types, and value types such as
// [AuthenticationResult] and [ChallengeName]. Pool storage, trigger dispatch
// and token signing live in the public store/, trigger/ and tokens/
// packages; Engine methods return store types (User, Pool, AppClient) and
// the Builder accepts store and trigger types. Audit dispatch, metrics and
// id generation live under internal/.
//
// # What this package must NOT do
//
//   - Decode or route HTTP requests. That belongs to the caller's wire layer.
//   - Choose a persistence engine. It depends only on store.Backend.
//   - Send SMS or email. Delivery is recorded through messages.Sink, never
//     transmitted.
//
// # Performance contract
//
// Engine methods acquire the target UserPool's mutex for the full
// read-modify-persist sequence of a mutation and release it before
// returning; two different pools never contend.
package cognitoemu
