package paperportal

// CanAccess decides whether caller may perform op on sub. A nil caller is an
// anonymous request.
//
// The rules are ordered and the first match wins:
//
//  1. public-fetch is allowed iff the submission is approved and carries a
//     public link; the caller's identity is never consulted.
//  2. admins may do anything.
//  3. the owner may do anything (so an owner sees their own pending and
//     rejected submissions).
//  4. any authenticated caller may read an approved submission.
//  5. deny.
//
// Rules 2-3 must run before rule 4; collapsing them into a status check would
// lock owners out of their unreviewed uploads.
func CanAccess(caller *Caller, sub *Submission, op Operation) bool {
	if sub == nil {
		return false
	}

	if op == OpPublicFetch {
		return sub.Status == StatusApproved && sub.PublicLinkID != ""
	}

	if caller == nil {
		return false
	}
	if caller.IsAdmin {
		return true
	}
	if sub.OwnerID != nil && *sub.OwnerID == caller.ID {
		return true
	}

	switch op {
	case OpViewMetadata, OpPreviewBytes, OpDownloadBytes:
		return sub.Status == StatusApproved
	}
	return false
}
