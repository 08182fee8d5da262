package main

// General API documentation for swaggo.
//
// @title           chatd API
// @version         1.0
// @description     Chat sessions over a local Ollama runtime or remote chat APIs, with model management.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
