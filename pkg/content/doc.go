// Package content implements the informational entities of the site: news,
// municipal services, projects, investments, administrative procedures, the
// media gallery and the contact inbox.
//
// Every entity follows the same shape: public reads, bearer-protected
// writes, plain SQL against the relational store. The gallery is the one
// exception, its writes are public because it is fed by an external
// collaborator. Entities that carry an image accept either a JSON body with
// an imageUrl or a multipart form whose file part is pushed through the
// media uploader before the row is written; an upload failure fails the
// whole request.
package content
