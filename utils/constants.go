// File: utils/constants.go
package utils

// AuthCodePrefix is the prefix used for Redis enrollment code keys.
const AuthCodePrefix = "authCode:"

// DeviceCodePrefix is the prefix used for Redis device login code keys.
const DeviceCodePrefix = "deviceCode:"

// OTPPrefix is the prefix used for purpose-bound OTP keys.
const OTPPrefix = "otp:"
