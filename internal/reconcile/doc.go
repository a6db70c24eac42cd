// Package reconcile compares a local document set against a remote folder
// listing and converges them.
//
// Identity is the file name only, compared case-insensitively after Unicode
// normalization. There is no content hashing, so a renamed file looks like
// one deletion plus one unrelated new file.
//
// For each name the engine decides exactly one of:
//   - upload: local file with no remote counterpart
//   - conflict: remote counterpart strictly newer than the local file; the
//     engine never picks a winner and writes nothing
//   - download: remote non-folder file with no local counterpart; the caller
//     is notified and fetches the bytes itself
//
// The remote listing is fetched once per call and treated as a snapshot.
package reconcile
