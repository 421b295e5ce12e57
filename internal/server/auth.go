package server

import (
	"errors"
	"net/http"

	"goserveph/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

const cookieAccessTokenName = "goserveph_access_token"

func (s *Service) handlePostStaffLogin(w http.ResponseWriter, r *http.Request) {

	if s.cognitoClient == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Staff sign-in is not configured.")
		return
	}

	err := r.ParseForm()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	var login = new(types.StaffLoginRequest)
	err = decoder.Decode(login, r.PostForm)
	if err != nil {
		s.logger.WithError(err).Error("failed to decode login form")
		s.writeError(w, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	if login.Email == "" || login.Password == "" {
		s.writeError(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: cognitotypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(s.config.CognitoClientID),
		AuthParameters: map[string]string{
			"USERNAME": login.Email,
			"PASSWORD": login.Password,
		},
	}

	resp, err := s.cognitoClient.InitiateAuth(r.Context(), input)
	if err != nil {
		var notAuthorized *cognitotypes.NotAuthorizedException
		var userNotFound *cognitotypes.UserNotFoundException
		if !errors.As(err, &notAuthorized) && !errors.As(err, &userNotFound) {
			s.logger.WithError(err).Error("failed to authenticate staff")
		}
		s.writeError(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	if resp.AuthenticationResult == nil || resp.AuthenticationResult.AccessToken == nil {
		s.writeError(w, http.StatusUnauthorized, "Login failed.")
		return
	}

	accessToken := aws.ToString(resp.AuthenticationResult.AccessToken)
	expiresIn := int(resp.AuthenticationResult.ExpiresIn)

	encryptedToken, err := s.cookie.Encode(cookieAccessTokenName, accessToken)
	if err != nil {
		s.logger.WithError(err).Error("failed to encrypt access token")
		s.internalServerError(w)
		return
	}

	// Set httpOnly, secure cookie with access token
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessTokenName,
		Value:    encryptedToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   expiresIn,
		Path:     "/",
	})

	s.writeJSON(w, http.StatusOK, types.ErrorResponse{Success: true, Message: "Signed in."})
}

func (s *Service) handlePostStaffLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessTokenName,
		Value:    "",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})

	s.writeJSON(w, http.StatusOK, types.ErrorResponse{Success: true, Message: "Signed out."})
}
