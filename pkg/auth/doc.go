// Package auth implements the Gatehouse access controller: email-based
// identity, the permission list with its single permanent admin, the pending
// access-request queue, and bearer-token sessions.
//
// Authorization is never stored as a flag. It is derived from the permission
// list every time a snapshot is taken, so a removal or admin revoke is
// visible to live sessions on their next request without re-login.
package auth
