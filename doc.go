// Package auth implements the authentication and account security layer of the
// healthcare portal: credential storage with lockout counters, bcrypt password
// hashing, a Redis backed email verification handshake, and JWT plus server
// side session issuance for patients, doctors, and paramedics.
package auth
