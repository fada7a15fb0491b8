// Package main ReStyle Server API
//
//	@title						ReStyle Server API
//	@version					1.0
//	@description				Room photo redecoration API backed by AI image synthesis
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Decorate
//	@tag.description			Room redecoration endpoints
//
//	@tag.name					Credits
//	@tag.description			Credit balance and grants
package main
