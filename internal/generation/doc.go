// Package generation defines the video generation domain: the request
// settings a user picks, the Generation record tracked through its lifecycle,
// and the boundary validation shared by the tracker and the proxy.
//
// A Generation starts in StatusProcessing at progress 0 and ends in exactly
// one terminal status. Completed records carry a video URL, failed records
// carry an error message, never both.
package generation
