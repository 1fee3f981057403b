// Package media stores uploaded images and videos in an S3-compatible
// bucket and hands back their public URLs.
//
// Uploads are buffered in memory and validated before any bytes reach the
// store: a size limit and an image/video content-type allowlist apply to
// every upload, and the round-trip to the bucket runs under an explicit
// timeout. Object keys are random, so uploads never collide or overwrite.
package media
