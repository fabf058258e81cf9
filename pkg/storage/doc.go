// Package storage uploads user files to object storage.
//
// An UploadService owns one bucket and its public base URL. Objects are
// stored under the uploading user's id; a name that is already taken gets a
// numeric suffix instead of overwriting.
package storage
